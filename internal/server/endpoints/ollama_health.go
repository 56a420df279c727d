package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/ollama"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// OllamaHealthEndpoint handles GET /api/ollama/health. An unreachable engine
// still returns 200 with connected=false; the check result is data, not an
// error.
type OllamaHealthEndpoint struct{}

func (e *OllamaHealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/ollama/health", e.handler
}

func (e *OllamaHealthEndpoint) RequiresInit() bool { return true }

func (e *OllamaHealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}

	health, err := client.CheckHealth(r.Context())
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, health)
}

func (e *OllamaHealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check Ollama connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ollama.Health
			if err := client.Get(cmd.Context(), "/api/ollama/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Connected: %v\n", resp.Connected)
			fmt.Printf("Endpoint:  %s\n", resp.Endpoint)
			fmt.Printf("Message:   %s\n", resp.Message)
			return nil
		},
	}
}
