package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/prompt"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// UpdatePromptEndpoint handles PUT /api/prompts/{id}.
type UpdatePromptEndpoint struct{}

func (e *UpdatePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/prompts/{id}", e.handler
}

func (e *UpdatePromptEndpoint) RequiresInit() bool { return true }

func (e *UpdatePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	rec, err := st.Update(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *UpdatePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req PromptRequest
	var temperature float64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an existing prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			client := api.NewClient(getServerURL())
			var rec prompt.Record
			if err := client.Put(cmd.Context(), fmt.Sprintf("/api/prompts/%s", args[0]), req, &rec); err != nil {
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
