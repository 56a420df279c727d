// Package session tracks the single in-memory working prompt and decides
// whether a save creates a new record or updates an existing one. Dirtiness
// is computed by field-wise comparison against a baseline snapshot, so
// editing a field back to its original value returns the session to clean.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/promptlab/promptlab/internal/fault"
	"github.com/promptlab/promptlab/internal/prompt"
)

// Store is the persistence surface the lifecycle needs.
type Store interface {
	Create(ctx context.Context, f prompt.Fields) (*prompt.Record, error)
	Update(ctx context.Context, id string, f prompt.Fields) (*prompt.Record, error)
}

// State is the lifecycle state of the working prompt.
type State string

const (
	// StateEmpty means no record is loaded and nothing has been edited.
	StateEmpty State = "empty"
	// StateClean means the working prompt matches its baseline.
	StateClean State = "clean"
	// StateDirty means local edits differ from the baseline.
	StateDirty State = "dirty"
	// StateSaving means a save is in flight.
	StateSaving State = "saving"
)

// Field names an editable working-prompt field.
type Field string

const (
	FieldName         Field = "name"
	FieldDescription  Field = "description"
	FieldSystemPrompt Field = "system_prompt"
	FieldModel        Field = "model"
	FieldTemperature  Field = "temperature"
	FieldObjective    Field = "objective"
)

// Working is the mutable in-memory projection of a prompt record plus the
// pre-refinement objective. It is owned exclusively by the lifecycle and
// never persisted directly.
type Working struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	Objective    string  `json:"objective,omitempty"`
}

func (w Working) fields() prompt.Fields {
	return prompt.Fields{
		Name:         w.Name,
		Description:  w.Description,
		SystemPrompt: w.SystemPrompt,
		Model:        w.Model,
		Temperature:  w.Temperature,
	}
}

// Decision is the outcome of a navigation request.
type Decision string

const (
	// Proceed means navigation can happen immediately.
	Proceed Decision = "proceed"
	// ConfirmationRequired means unsaved edits exist and the caller must
	// confirm the discard before navigating.
	ConfirmationRequired Decision = "confirmation_required"
)

// Defaults seed a fresh working prompt.
type Defaults struct {
	Model       string
	Temperature float64
}

// Lifecycle manages one working prompt per session. It is not designed for
// concurrent mutation from multiple callers; the mutex protects invariants,
// not ordering.
type Lifecycle struct {
	mu        sync.Mutex
	store     Store
	defaults  Defaults
	logger    *slog.Logger
	working   Working
	baseline  Working
	loaded    bool
	saving    bool
	callbacks []func(State)
}

// New creates an empty lifecycle seeded with the configured defaults.
func New(store Store, defaults Defaults, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lifecycle{store: store, defaults: defaults, logger: logger}
	l.resetLocked()
	return l
}

func (l *Lifecycle) resetLocked() {
	l.working = Working{
		Model:       l.defaults.Model,
		Temperature: l.defaults.Temperature,
	}
	l.baseline = l.working
	l.loaded = false
}

// OnChange registers a callback invoked after every state transition.
// Callbacks run with the lifecycle lock held and must not call back in.
func (l *Lifecycle) OnChange(fn func(State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}

func (l *Lifecycle) notify(state State) {
	for _, fn := range l.callbacks {
		fn(state)
	}
}

// State returns the current lifecycle state. Dirtiness is recomputed from
// the baseline on every call, never latched.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *Lifecycle) stateLocked() State {
	if l.saving {
		return StateSaving
	}
	if l.working.fields() != l.baseline.fields() {
		return StateDirty
	}
	if !l.loaded && l.working.ID == "" {
		return StateEmpty
	}
	return StateClean
}

// Working returns a copy of the current working prompt.
func (l *Lifecycle) Working() Working {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.working
}

// IsDirty reports whether any persisted field differs from the baseline.
func (l *Lifecycle) IsDirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.working.fields() != l.baseline.fields()
}

// DirtyFields lists the fields that differ from the baseline.
func (l *Lifecycle) DirtyFields() []Field {
	l.mu.Lock()
	defer l.mu.Unlock()

	var dirty []Field
	if l.working.Name != l.baseline.Name {
		dirty = append(dirty, FieldName)
	}
	if l.working.Description != l.baseline.Description {
		dirty = append(dirty, FieldDescription)
	}
	if l.working.SystemPrompt != l.baseline.SystemPrompt {
		dirty = append(dirty, FieldSystemPrompt)
	}
	if l.working.Model != l.baseline.Model {
		dirty = append(dirty, FieldModel)
	}
	if l.working.Temperature != l.baseline.Temperature {
		dirty = append(dirty, FieldTemperature)
	}
	return dirty
}

// Load replaces the working prompt with a stored record, discarding any
// unsaved edits. Callers must have confirmed the discard (RequestNavigate)
// if the session was dirty.
func (l *Lifecycle) Load(rec *prompt.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.saving {
		return fault.New(fault.AlreadyInProgress, "cannot load a prompt while a save is in progress")
	}

	l.working = Working{
		ID:           rec.ID,
		Name:         rec.Name,
		Description:  rec.Description,
		SystemPrompt: rec.SystemPrompt,
		Model:        rec.Model,
		Temperature:  rec.Temperature,
	}
	l.baseline = l.working
	l.loaded = true

	l.notify(StateClean)
	return nil
}

// Discard destroys the working prompt and returns to an empty session.
func (l *Lifecycle) Discard() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.saving {
		return fault.New(fault.AlreadyInProgress, "cannot discard while a save is in progress")
	}
	l.resetLocked()
	l.notify(StateEmpty)
	return nil
}

// Edit applies a single field edit. String fields take string values;
// temperature takes a float64.
func (l *Lifecycle) Edit(field Field, value any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.saving {
		return fault.New(fault.AlreadyInProgress, "cannot edit while a save is in progress")
	}

	if field == FieldTemperature {
		t, ok := value.(float64)
		if !ok {
			return fault.New(fault.Validation, "temperature must be a number")
		}
		l.working.Temperature = t
		l.notify(l.stateLocked())
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return fault.New(fault.Validation, "%s must be a string", field)
	}
	switch field {
	case FieldName:
		l.working.Name = s
	case FieldDescription:
		l.working.Description = s
	case FieldSystemPrompt:
		l.working.SystemPrompt = s
	case FieldModel:
		l.working.Model = s
	case FieldObjective:
		l.working.Objective = s
	default:
		return fault.New(fault.Validation, "unknown field %q", field)
	}

	l.notify(l.stateLocked())
	return nil
}

// SetSystemPrompt replaces the system prompt, used when applying a
// refinement result.
func (l *Lifecycle) SetSystemPrompt(text string) error {
	return l.Edit(FieldSystemPrompt, text)
}

// Save persists the working prompt: create when it has no id, update when
// it does. On success the baseline advances and the session becomes clean;
// on failure the edits are preserved and the session stays dirty.
func (l *Lifecycle) Save(ctx context.Context) (*prompt.Record, error) {
	l.mu.Lock()
	if l.saving {
		l.mu.Unlock()
		return nil, fault.New(fault.AlreadyInProgress, "a save is already in progress")
	}

	fields := l.working.fields().Normalize()
	if err := fields.Validate(); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	id := l.working.ID
	l.saving = true
	l.notify(StateSaving)
	l.mu.Unlock()

	var rec *prompt.Record
	var err error
	if id == "" {
		rec, err = l.store.Create(ctx, fields)
	} else {
		rec, err = l.store.Update(ctx, id, fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.saving = false

	if err != nil {
		l.logger.Warn("save failed", "error", err)
		l.notify(l.stateLocked())
		return nil, err
	}

	l.working.ID = rec.ID
	l.working.Name = rec.Name
	l.working.Description = rec.Description
	l.working.SystemPrompt = rec.SystemPrompt
	l.working.Model = rec.Model
	l.working.Temperature = rec.Temperature
	l.baseline = l.working
	l.loaded = true

	l.notify(StateClean)
	return rec, nil
}

// SaveAs persists the working prompt as a new record under newName,
// regardless of whether it previously had an id. The working copy detaches
// from its original record; the original is never mutated.
func (l *Lifecycle) SaveAs(ctx context.Context, newName string) (*prompt.Record, error) {
	l.mu.Lock()
	if l.saving {
		l.mu.Unlock()
		return nil, fault.New(fault.AlreadyInProgress, "a save is already in progress")
	}

	fields := l.working.fields()
	fields.Name = newName
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	l.saving = true
	l.notify(StateSaving)
	l.mu.Unlock()

	rec, err := l.store.Create(ctx, fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.saving = false

	if err != nil {
		l.logger.Warn("save-as failed", "name", newName, "error", err)
		l.notify(l.stateLocked())
		return nil, err
	}

	l.working.ID = rec.ID
	l.working.Name = rec.Name
	l.working.Description = rec.Description
	l.working.SystemPrompt = rec.SystemPrompt
	l.working.Model = rec.Model
	l.working.Temperature = rec.Temperature
	l.baseline = l.working
	l.loaded = true

	l.notify(StateClean)
	return rec, nil
}

// RequestNavigate reports whether navigating away needs user confirmation.
// Only a dirty session requires it.
func (l *Lifecycle) RequestNavigate() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stateLocked() == StateDirty {
		return ConfirmationRequired
	}
	return Proceed
}
