package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/ollama"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// ListModelsResponse is the response for listing available models.
type ListModelsResponse struct {
	Models []ollama.ModelInfo `json:"models"`
	Total  int                `json:"total"`
}

// ListModelsEndpoint handles GET /api/models. Results come from the model
// cache when it is still fresh.
type ListModelsEndpoint struct{}

func (e *ListModelsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/models", e.handler
}

func (e *ListModelsEndpoint) RequiresInit() bool { return true }

func (e *ListModelsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}

	models, err := client.ListModels(r.Context())
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListModelsResponse{Models: models, Total: len(models)})
}

func (e *ListModelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available Ollama models",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListModelsResponse
			if err := client.Get(cmd.Context(), "/api/models", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RefreshModelsEndpoint handles POST /api/models/refresh. It bypasses the
// cache and always queries the engine.
type RefreshModelsEndpoint struct{}

func (e *RefreshModelsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/models/refresh", e.handler
}

func (e *RefreshModelsEndpoint) RequiresInit() bool { return true }

func (e *RefreshModelsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}

	models, err := client.RefreshModels(r.Context())
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListModelsResponse{Models: models, Total: len(models)})
}

func (e *RefreshModelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the model list from Ollama",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListModelsResponse
			if err := client.Post(cmd.Context(), "/api/models/refresh", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ModelCacheEndpoint handles GET /api/models/cache.
type ModelCacheEndpoint struct{}

func (e *ModelCacheEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/models/cache", e.handler
}

func (e *ModelCacheEndpoint) RequiresInit() bool { return true }

func (e *ModelCacheEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}
	writeJSON(w, http.StatusOK, client.ModelCacheInfo())
}

func (e *ModelCacheEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Show model cache state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ollama.CacheInfo
			if err := client.Get(cmd.Context(), "/api/models/cache", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ClearModelCacheEndpoint handles DELETE /api/models/cache.
type ClearModelCacheEndpoint struct{}

func (e *ClearModelCacheEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/models/cache", e.handler
}

func (e *ClearModelCacheEndpoint) RequiresInit() bool { return true }

func (e *ClearModelCacheEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}
	client.ClearModelCache()
	w.WriteHeader(http.StatusNoContent)
}

func (e *ClearModelCacheEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Clear the model cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/models/cache"); err != nil {
				return err
			}
			fmt.Println("Model cache cleared")
			return nil
		},
	}
}
