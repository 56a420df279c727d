package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/config"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// GetConfigEndpoint handles GET /api/config. Configuration is read-only
// over HTTP; changes go through the config file, which is hot-reloaded.
type GetConfigEndpoint struct{}

func (e *GetConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/config", e.handler
}

func (e *GetConfigEndpoint) RequiresInit() bool { return false }

func (e *GetConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	mgr := svcctx.ConfigFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config not initialized")
		return
	}
	writeJSON(w, http.StatusOK, mgr.Get())
}

func (e *GetConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the server's active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var cfg config.Config
			if err := client.Get(cmd.Context(), "/api/config", &cfg); err != nil {
				return err
			}
			return api.Output(cfg)
		},
	}
}
