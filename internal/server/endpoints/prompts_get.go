package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/prompt"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// GetPromptEndpoint handles GET /api/prompts/{id}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{id}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return true }

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	rec, err := st.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a prompt by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec prompt.Record
			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/prompts/%s", args[0]), &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}
