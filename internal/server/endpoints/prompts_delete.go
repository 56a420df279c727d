package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// DeletePromptEndpoint handles DELETE /api/prompts/{id}.
type DeletePromptEndpoint struct{}

func (e *DeletePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/prompts/{id}", e.handler
}

func (e *DeletePromptEndpoint) RequiresInit() bool { return true }

func (e *DeletePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	if err := st.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeFault(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeletePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), fmt.Sprintf("/api/prompts/%s", args[0])); err != nil {
				return err
			}
			fmt.Printf("Deleted prompt %s\n", args[0])
			return nil
		},
	}
}
