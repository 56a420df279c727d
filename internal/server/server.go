// Package server wires the prompt store, the Ollama client, and the working
// session behind one HTTP server. Services flow to handlers through the
// request context.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/config"
	"github.com/promptlab/promptlab/internal/home"
	"github.com/promptlab/promptlab/internal/library"
	"github.com/promptlab/promptlab/internal/ollama"
	"github.com/promptlab/promptlab/internal/server/endpoints"
	"github.com/promptlab/promptlab/internal/session"
	"github.com/promptlab/promptlab/internal/store"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// Server is the main PromptLab HTTP server.
type Server struct {
	httpServer    *http.Server
	configMgr     *config.Manager
	homeDir       *home.Dir
	dockerManager *ollama.DockerManager
	logger        *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	services *svcctx.Services
	store    *store.Store
	running  bool
}

// Config holds server configuration.
type Config struct {
	// ConfigManager provides configuration with hot-reload support (required)
	ConfigManager *config.Manager
	// Home is the promptlab home directory (required)
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}

	// The container manager is optional; without a Docker daemon the
	// status endpoint just omits container state.
	active := cfg.ConfigManager.Get()
	dm, err := ollama.NewDockerManager(ollama.DockerConfig{
		ContainerName: active.Ollama.Container.Name,
		Image:         active.Ollama.Container.Image,
		HostPort:      active.Ollama.Container.Port,
		ModelsPath:    cfg.Home.ModelsPath(),
	})
	if err != nil {
		cfg.Logger.Warn("docker unavailable, managed container disabled", "error", err)
	} else {
		s.dockerManager = dm
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:    active.Server.Addr(),
		Handler: s.withServices(mux),
		// Refine and test handlers block on model inference, so write
		// timeouts stay above the longest operation deadline.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start opens the store, builds the services, and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.homeDir.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	active := s.configMgr.Get()
	dbPath := active.Database.Path
	if dbPath == "" {
		dbPath = s.homeDir.DatabasePath()
	}

	s.logger.Info("opening prompt store", "path", dbPath)
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open prompt store: %w", err)
	}

	s.mu.Lock()
	s.store = st
	s.services = s.buildServices(active, st)
	s.mu.Unlock()

	// Rebuild the Ollama client and session defaults when the config
	// file changes. The store and server address stay fixed.
	s.configMgr.OnChange(func(c *config.Config) {
		s.mu.Lock()
		s.services = s.buildServices(c, st)
		s.mu.Unlock()
		s.logger.Info("services reloaded from config", "endpoint", c.Ollama.Endpoint)
	})
	s.configMgr.WatchConfig()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// buildServices assembles the per-request service set from the active
// config. The session lifecycle survives rebuilds so edits are not lost on
// config reload.
func (s *Server) buildServices(c *config.Config, st *store.Store) *svcctx.Services {
	client := ollama.NewClient(c.ToClientConfig())
	defaults := session.Defaults{
		Model:       c.Ollama.DefaultModel,
		Temperature: c.Ollama.DefaultTemperature,
	}

	var lifecycle *session.Lifecycle
	if s.services != nil {
		lifecycle = s.services.Lifecycle
	} else {
		lifecycle = session.New(st, defaults, s.logger)
	}

	return &svcctx.Services{
		Store:     st,
		Ollama:    client,
		Docker:    s.dockerManager,
		Lifecycle: lifecycle,
		Reconciler: library.NewReconciler(st, library.Defaults{
			Model:       c.Ollama.DefaultModel,
			Temperature: c.Ollama.DefaultTemperature,
		}, s.logger),
		Config: s.configMgr,
		Logger: s.logger,
		Home:   s.homeDir,
	}
}

// shutdown performs graceful shutdown of the HTTP server and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.Lock()
	st := s.store
	s.store = nil
	s.services = nil
	s.mu.Unlock()

	if st != nil {
		if err := st.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	if s.dockerManager != nil {
		if err := s.dockerManager.Close(); err != nil {
			s.logger.Error("docker manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Services returns the current service set.
// Returns nil if the server hasn't started yet.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store is open.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ready := s.store != nil
		s.mu.RUnlock()
		if !ready {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
