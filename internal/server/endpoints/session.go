package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/prompt"
	"github.com/promptlab/promptlab/internal/session"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// SessionView is the serialized working-prompt state.
type SessionView struct {
	State       session.State   `json:"state"`
	Dirty       bool            `json:"dirty"`
	DirtyFields []session.Field `json:"dirty_fields,omitempty"`
	Working     session.Working `json:"working"`
}

func sessionView(l *session.Lifecycle) SessionView {
	return SessionView{
		State:       l.State(),
		Dirty:       l.IsDirty(),
		DirtyFields: l.DirtyFields(),
		Working:     l.Working(),
	}
}

// GetSessionEndpoint handles GET /api/session.
type GetSessionEndpoint struct{}

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/session", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	l := svcctx.LifecycleFrom(r.Context())
	if l == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(l))
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the working prompt state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionView
			if err := client.Get(cmd.Context(), "/api/session", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// LoadSessionRequest selects the prompt to load into the session.
type LoadSessionRequest struct {
	ID string `json:"id"`
}

// LoadSessionEndpoint handles POST /api/session/load. Loading replaces any
// unsaved edits; clients are expected to have confirmed via navigate first.
type LoadSessionEndpoint struct{}

func (e *LoadSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/session/load", e.handler
}

func (e *LoadSessionEndpoint) RequiresInit() bool { return true }

func (e *LoadSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req LoadSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	l := svcctx.LifecycleFrom(r.Context())
	if st == nil || l == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}

	rec, err := st.Get(r.Context(), req.ID)
	if err != nil {
		writeFault(w, err)
		return
	}
	if err := l.Load(rec); err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionView(l))
}

func (e *LoadSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Load a stored prompt into the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionView
			if err := client.Post(cmd.Context(), "/api/session/load", LoadSessionRequest{ID: args[0]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DiscardSessionEndpoint handles POST /api/session/discard. It resets the
// session to an empty working prompt seeded with defaults.
type DiscardSessionEndpoint struct{}

func (e *DiscardSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/session/discard", e.handler
}

func (e *DiscardSessionEndpoint) RequiresInit() bool { return true }

func (e *DiscardSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	l := svcctx.LifecycleFrom(r.Context())
	if l == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}
	if err := l.Discard(); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(l))
}

func (e *DiscardSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Discard the working prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionView
			if err := client.Post(cmd.Context(), "/api/session/discard", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// EditSessionRequest applies a single field edit.
type EditSessionRequest struct {
	Field session.Field `json:"field"`
	Value any           `json:"value"`
}

// EditSessionEndpoint handles POST /api/session/edit.
type EditSessionEndpoint struct{}

func (e *EditSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/session/edit", e.handler
}

func (e *EditSessionEndpoint) RequiresInit() bool { return true }

func (e *EditSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req EditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l := svcctx.LifecycleFrom(r.Context())
	if l == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}
	if err := l.Edit(req.Field, req.Value); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(l))
}

func (e *EditSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var temperature float64
	cmd := &cobra.Command{
		Use:   "edit <field> [value]",
		Short: "Edit a working-prompt field",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := EditSessionRequest{Field: session.Field(args[0])}
			if cmd.Flags().Changed("temperature") {
				req.Field = session.FieldTemperature
				req.Value = temperature
			} else {
				if len(args) < 2 {
					return fmt.Errorf("value is required")
				}
				req.Value = args[1]
			}

			client := api.NewClient(getServerURL())
			var resp SessionView
			if err := client.Post(cmd.Context(), "/api/session/edit", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Set the temperature field instead of a string field")
	return cmd
}

// SaveSessionRequest optionally carries a new name for save-as.
type SaveSessionRequest struct {
	// As, when set, always creates a new record under this name and leaves
	// the original untouched.
	As string `json:"as,omitempty"`
}

// SaveSessionEndpoint handles POST /api/session/save.
type SaveSessionEndpoint struct{}

func (e *SaveSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/session/save", e.handler
}

func (e *SaveSessionEndpoint) RequiresInit() bool { return true }

func (e *SaveSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SaveSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	l := svcctx.LifecycleFrom(r.Context())
	if l == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}

	var rec *prompt.Record
	var err error
	if req.As != "" {
		rec, err = l.SaveAs(r.Context(), req.As)
	} else {
		rec, err = l.Save(r.Context())
	}
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *SaveSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var saveAs string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the working prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec prompt.Record
			if err := client.Post(cmd.Context(), "/api/session/save", SaveSessionRequest{As: saveAs}, &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
	cmd.Flags().StringVar(&saveAs, "as", "", "Save as a new prompt with this name")
	return cmd
}

// NavigateResponse is the outcome of a navigation request.
type NavigateResponse struct {
	Decision session.Decision `json:"decision"`
}

// NavigateSessionEndpoint handles POST /api/session/navigate. A dirty
// session answers confirmation_required without changing any state.
type NavigateSessionEndpoint struct{}

func (e *NavigateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/session/navigate", e.handler
}

func (e *NavigateSessionEndpoint) RequiresInit() bool { return true }

func (e *NavigateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	l := svcctx.LifecycleFrom(r.Context())
	if l == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}
	writeJSON(w, http.StatusOK, NavigateResponse{Decision: l.RequestNavigate()})
}

func (e *NavigateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate",
		Short: "Check whether navigation would discard unsaved edits",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp NavigateResponse
			if err := client.Post(cmd.Context(), "/api/session/navigate", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Decision: %s\n", resp.Decision)
			return nil
		},
	}
}
