package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/prompt"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// PromptRequest is the request body for creating or updating a prompt.
// Model and temperature fall back to configured defaults when omitted.
type PromptRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	SystemPrompt string   `json:"system_prompt"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// fields resolves the request into validated-ready prompt fields using the
// configured defaults for anything left unset.
func (req PromptRequest) fields(r *http.Request) prompt.Fields {
	f := prompt.Fields{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
	}

	cfg := svcctx.ConfigFrom(r.Context())
	if f.Model == "" && cfg != nil {
		f.Model = cfg.Get().Ollama.DefaultModel
	}
	if req.Temperature != nil {
		f.Temperature = *req.Temperature
	} else if cfg != nil {
		f.Temperature = cfg.Get().Ollama.DefaultTemperature
	}

	return f
}

// CreatePromptEndpoint handles POST /api/prompts.
type CreatePromptEndpoint struct{}

func (e *CreatePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prompts", e.handler
}

func (e *CreatePromptEndpoint) RequiresInit() bool { return true }

func (e *CreatePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	fields := req.fields(r).Normalize()
	if err := fields.Validate(); err != nil {
		writeFault(w, err)
		return
	}

	rec, err := st.Create(r.Context(), fields)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (e *CreatePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req PromptRequest
	var temperature float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			client := api.NewClient(getServerURL())
			var rec prompt.Record
			if err := client.Post(cmd.Context(), "/api/prompts", req, &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Prompt name (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Prompt description")
	cmd.Flags().StringVar(&req.SystemPrompt, "system-prompt", "", "System prompt text (required)")
	cmd.Flags().StringVar(&req.Model, "model", "", "Target model")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (0-2)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("system-prompt")
	return cmd
}
