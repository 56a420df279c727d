package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/prompt"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// ListPromptsResponse is the response for listing prompts.
type ListPromptsResponse struct {
	Prompts []*prompt.Record `json:"prompts"`
	Total   int              `json:"total"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return true }

func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	records, err := st.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListPromptsResponse{Prompts: records, Total: len(records)})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			path := "/api/prompts"
			if search != "" {
				path += "?search=" + url.QueryEscape(search)
			}

			var resp ListPromptsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by name or description substring")
	return cmd
}
