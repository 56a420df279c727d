// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/promptlab/promptlab/internal/config"
	"github.com/promptlab/promptlab/internal/home"
	"github.com/promptlab/promptlab/internal/library"
	"github.com/promptlab/promptlab/internal/ollama"
	"github.com/promptlab/promptlab/internal/session"
	"github.com/promptlab/promptlab/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store      *store.Store
	Ollama     *ollama.Client
	Docker     *ollama.DockerManager
	Lifecycle  *session.Lifecycle
	Reconciler *library.Reconciler
	Config     *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the prompt store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// OllamaFrom extracts the Ollama client from context.
func OllamaFrom(ctx context.Context) *ollama.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ollama
	}
	return nil
}

// DockerFrom extracts the managed container manager from context.
func DockerFrom(ctx context.Context) *ollama.DockerManager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Docker
	}
	return nil
}

// LifecycleFrom extracts the prompt session lifecycle from context.
func LifecycleFrom(ctx context.Context) *session.Lifecycle {
	if s := ServicesFrom(ctx); s != nil {
		return s.Lifecycle
	}
	return nil
}

// ReconcilerFrom extracts the library reconciler from context.
func ReconcilerFrom(ctx context.Context) *library.Reconciler {
	if s := ServicesFrom(ctx); s != nil {
		return s.Reconciler
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
