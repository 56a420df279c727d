package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// RefineRequest is the request body for prompt refinement.
type RefineRequest struct {
	Objective string `json:"objective"`
	Model     string `json:"model,omitempty"`
}

// RefineResponse is the refinement result.
type RefineResponse struct {
	RefinedPrompt string `json:"refined_prompt"`
	Model         string `json:"model"`
}

// RefineEndpoint handles POST /api/refine-prompt. Refinement turns a short
// objective into a full system prompt via the configured model.
type RefineEndpoint struct{}

func (e *RefineEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/refine-prompt", e.handler
}

func (e *RefineEndpoint) RequiresInit() bool { return true }

func (e *RefineEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}

	model := req.Model
	if model == "" {
		if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil {
			model = cfg.Get().Ollama.DefaultModel
		}
	}

	refined, err := client.Refine(r.Context(), req.Objective, model)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefineResponse{RefinedPrompt: refined, Model: model})
}

func (e *RefineEndpoint) Command(getServerURL func() string) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "refine <objective>",
		Short: "Refine an objective into a system prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RefineResponse
			req := RefineRequest{Objective: args[0], Model: model}
			if err := client.Post(cmd.Context(), "/api/refine-prompt", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model to refine with (default: configured model)")
	return cmd
}
