package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/library"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// ExportLibraryEndpoint handles GET /api/library/export. The response body
// is the export file itself, not a JSON envelope.
type ExportLibraryEndpoint struct{}

func (e *ExportLibraryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/library/export", e.handler
}

func (e *ExportLibraryEndpoint) RequiresInit() bool { return true }

func (e *ExportLibraryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	format, err := library.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, meta, err := library.Export(r.Context(), st, format)
	if err != nil {
		writeFault(w, err)
		return
	}

	contentType := "application/json"
	filename := "promptlab-export.json"
	if format == library.FormatYAML {
		contentType = "application/yaml"
		filename = "promptlab-export.yaml"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Total-Prompts", fmt.Sprintf("%d", meta.TotalPrompts))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *ExportLibraryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the prompt library to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := getServerURL() + "/api/library/export?format=" + format
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				var errResp api.ErrorResponse
				if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
					return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
				}
				return fmt.Errorf("server error (%d)", resp.StatusCode)
			}

			if outPath == "" {
				outPath = "promptlab-export." + format
			}
			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()
			if _, err := out.ReadFrom(resp.Body); err != nil {
				return err
			}
			fmt.Printf("Exported library to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Export format (json or yaml)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path")
	return cmd
}

// ImportLibraryRequest is the request body for a library import.
type ImportLibraryRequest struct {
	// Content is the raw export file text, JSON or YAML.
	Content string `json:"content"`
	// Policy resolves name conflicts: skip, overwrite, or rename.
	Policy string `json:"policy,omitempty"`
}

// ImportLibraryEndpoint handles POST /api/library/import.
type ImportLibraryEndpoint struct{}

func (e *ImportLibraryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/library/import", e.handler
}

func (e *ImportLibraryEndpoint) RequiresInit() bool { return true }

func (e *ImportLibraryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ImportLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	policy, err := library.ParsePolicy(req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := svcctx.ReconcilerFrom(r.Context())
	if rc == nil {
		writeError(w, http.StatusServiceUnavailable, "reconciler not initialized")
		return
	}

	file, err := library.Parse([]byte(req.Content))
	if err != nil {
		writeFault(w, err)
		return
	}

	report, err := rc.Reconcile(r.Context(), file, policy)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (e *ImportLibraryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import prompts from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var report library.Report
			req := ImportLibraryRequest{Content: string(data), Policy: policy}
			if err := client.Post(cmd.Context(), "/api/library/import", req, &report); err != nil {
				return err
			}
			return api.Output(report)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "skip", "Conflict policy (skip, overwrite, rename)")
	return cmd
}
