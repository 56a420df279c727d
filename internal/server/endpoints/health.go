package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		resp.Status = "degraded"
		resp.Database = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if _, err := st.Count(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes database)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:   %s\n", resp.Status)
			if resp.Database != "" {
				fmt.Printf("Database: %s\n", resp.Database)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string       `json:"server"`
	Prompts   int          `json:"prompts"`
	Ollama    OllamaStatus `json:"ollama"`
	Container string       `json:"container,omitempty"`
}

// OllamaStatus shows engine connectivity.
type OllamaStatus struct {
	Connected bool   `json:"connected"`
	Endpoint  string `json:"endpoint"`
	Message   string `json:"message,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running"}

	if st := svcctx.StoreFrom(r.Context()); st != nil {
		if count, err := st.Count(r.Context()); err == nil {
			resp.Prompts = count
		}
	}

	if client := svcctx.OllamaFrom(r.Context()); client != nil {
		health, err := client.CheckHealth(r.Context())
		if err != nil {
			resp.Ollama = OllamaStatus{Endpoint: client.Endpoint(), Message: "health check already in progress"}
		} else {
			resp.Ollama = OllamaStatus{
				Connected: health.Connected,
				Endpoint:  health.Endpoint,
				Message:   health.Message,
			}
		}
	}

	if docker := svcctx.DockerFrom(r.Context()); docker != nil {
		status, err := docker.Status(r.Context())
		if err != nil {
			resp.Container = "error"
		} else {
			resp.Container = string(status)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server:  %s\n", resp.Server)
			fmt.Printf("Prompts: %d\n", resp.Prompts)
			fmt.Printf("Ollama:\n")
			fmt.Printf("  Connected: %v\n", resp.Ollama.Connected)
			fmt.Printf("  Endpoint:  %s\n", resp.Ollama.Endpoint)
			if resp.Ollama.Message != "" {
				fmt.Printf("  Message:   %s\n", resp.Ollama.Message)
			}
			if resp.Container != "" {
				fmt.Printf("Container: %s\n", resp.Container)
			}
			return nil
		},
	}
}
