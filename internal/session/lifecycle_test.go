package session

import (
	"context"
	"testing"
	"time"

	"github.com/promptlab/promptlab/internal/fault"
	"github.com/promptlab/promptlab/internal/prompt"
)

// fakeStore records create/update calls and returns canned records.
type fakeStore struct {
	creates []prompt.Fields
	updates []struct {
		id     string
		fields prompt.Fields
	}
	nextID string
	err    error
}

func (f *fakeStore) Create(ctx context.Context, fields prompt.Fields) (*prompt.Record, error) {
	f.creates = append(f.creates, fields)
	if f.err != nil {
		return nil, f.err
	}
	id := f.nextID
	if id == "" {
		id = "generated-id"
	}
	return record(id, fields), nil
}

func (f *fakeStore) Update(ctx context.Context, id string, fields prompt.Fields) (*prompt.Record, error) {
	f.updates = append(f.updates, struct {
		id     string
		fields prompt.Fields
	}{id, fields})
	if f.err != nil {
		return nil, f.err
	}
	return record(id, fields), nil
}

func record(id string, fields prompt.Fields) *prompt.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &prompt.Record{
		ID:           id,
		Name:         fields.Name,
		Description:  fields.Description,
		SystemPrompt: fields.SystemPrompt,
		Model:        fields.Model,
		Temperature:  fields.Temperature,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testDefaults() Defaults {
	return Defaults{Model: "llama2", Temperature: 0.7}
}

func TestLifecycle_InitialState(t *testing.T) {
	l := New(&fakeStore{}, testDefaults(), nil)

	if got := l.State(); got != StateEmpty {
		t.Errorf("expected empty state, got %s", got)
	}
	w := l.Working()
	if w.Model != "llama2" || w.Temperature != 0.7 {
		t.Errorf("expected seeded defaults, got %+v", w)
	}
}

func TestLifecycle_Edit(t *testing.T) {
	t.Run("editing makes the session dirty", func(t *testing.T) {
		l := New(&fakeStore{}, testDefaults(), nil)
		if err := l.Edit(FieldName, "Reviewer"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}
		if got := l.State(); got != StateDirty {
			t.Errorf("expected dirty state, got %s", got)
		}
		fields := l.DirtyFields()
		if len(fields) != 1 || fields[0] != FieldName {
			t.Errorf("expected dirty name only, got %v", fields)
		}
	})

	t.Run("reverting an edit returns to the prior state", func(t *testing.T) {
		l := New(&fakeStore{}, testDefaults(), nil)
		if err := l.Edit(FieldTemperature, 1.5); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}
		if !l.IsDirty() {
			t.Fatal("expected dirty after edit")
		}
		if err := l.Edit(FieldTemperature, 0.7); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}
		if got := l.State(); got != StateEmpty {
			t.Errorf("expected empty after revert, got %s", got)
		}
	})

	t.Run("objective does not affect dirtiness", func(t *testing.T) {
		l := New(&fakeStore{}, testDefaults(), nil)
		if err := l.Edit(FieldObjective, "summarize things"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}
		if l.IsDirty() {
			t.Error("objective edits must not dirty the session")
		}
		if got := l.Working().Objective; got != "summarize things" {
			t.Errorf("expected objective stored, got %q", got)
		}
	})

	t.Run("type validation", func(t *testing.T) {
		l := New(&fakeStore{}, testDefaults(), nil)
		if err := l.Edit(FieldTemperature, "hot"); !fault.Is(err, fault.Validation) {
			t.Errorf("expected validation fault for string temperature, got %v", err)
		}
		if err := l.Edit(FieldName, 42); !fault.Is(err, fault.Validation) {
			t.Errorf("expected validation fault for numeric name, got %v", err)
		}
		if err := l.Edit(Field("bogus"), "x"); !fault.Is(err, fault.Validation) {
			t.Errorf("expected validation fault for unknown field, got %v", err)
		}
	})
}

func TestLifecycle_Load(t *testing.T) {
	l := New(&fakeStore{}, testDefaults(), nil)
	if err := l.Edit(FieldName, "unsaved"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}

	rec := record("abc", prompt.Fields{
		Name:         "Stored",
		SystemPrompt: "You are stored.",
		Model:        "mistral",
		Temperature:  1.0,
	})
	if err := l.Load(rec); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := l.State(); got != StateClean {
		t.Errorf("expected clean after load, got %s", got)
	}
	w := l.Working()
	if w.ID != "abc" || w.Name != "Stored" || w.Model != "mistral" {
		t.Errorf("expected loaded record, got %+v", w)
	}
}

func TestLifecycle_Discard(t *testing.T) {
	l := New(&fakeStore{}, testDefaults(), nil)
	if err := l.Load(record("abc", prompt.Fields{Name: "X", SystemPrompt: "s", Model: "m", Temperature: 0.5})); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := l.Edit(FieldName, "Y"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}

	if err := l.Discard(); err != nil {
		t.Fatalf("Discard() error: %v", err)
	}
	if got := l.State(); got != StateEmpty {
		t.Errorf("expected empty after discard, got %s", got)
	}
	w := l.Working()
	if w.ID != "" || w.Model != "llama2" {
		t.Errorf("expected reseeded defaults, got %+v", w)
	}
}

func TestLifecycle_Save(t *testing.T) {
	t.Run("creates when working prompt has no id", func(t *testing.T) {
		store := &fakeStore{nextID: "new-id"}
		l := New(store, testDefaults(), nil)
		if err := l.Edit(FieldName, "Fresh"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}
		if err := l.Edit(FieldSystemPrompt, "You are fresh."); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}

		rec, err := l.Save(context.Background())
		if err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		if len(store.creates) != 1 || len(store.updates) != 0 {
			t.Fatalf("expected one create, got %d creates %d updates", len(store.creates), len(store.updates))
		}
		if rec.ID != "new-id" {
			t.Errorf("expected assigned id, got %q", rec.ID)
		}
		if got := l.State(); got != StateClean {
			t.Errorf("expected clean after save, got %s", got)
		}
		if l.Working().ID != "new-id" {
			t.Error("expected working prompt to adopt the new id")
		}
	})

	t.Run("updates when working prompt has an id", func(t *testing.T) {
		store := &fakeStore{}
		l := New(store, testDefaults(), nil)
		if err := l.Load(record("abc", prompt.Fields{Name: "X", SystemPrompt: "s", Model: "m", Temperature: 0.5})); err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if err := l.Edit(FieldDescription, "edited"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}

		if _, err := l.Save(context.Background()); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		if len(store.updates) != 1 || store.updates[0].id != "abc" {
			t.Fatalf("expected one update of abc, got %+v", store.updates)
		}
		if len(store.creates) != 0 {
			t.Errorf("expected no creates, got %d", len(store.creates))
		}
	})

	t.Run("validation failure leaves edits intact", func(t *testing.T) {
		store := &fakeStore{}
		l := New(store, testDefaults(), nil)
		if err := l.Edit(FieldName, "No System Prompt"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}

		_, err := l.Save(context.Background())
		if !fault.Is(err, fault.Validation) {
			t.Fatalf("expected validation fault, got %v", err)
		}
		if len(store.creates) != 0 {
			t.Error("validation failure must not reach the store")
		}
		if got := l.State(); got != StateDirty {
			t.Errorf("expected still dirty, got %s", got)
		}
	})

	t.Run("store failure preserves edits", func(t *testing.T) {
		store := &fakeStore{err: fault.New(fault.DuplicateName, "taken")}
		l := New(store, testDefaults(), nil)
		if err := l.Edit(FieldName, "Taken"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}
		if err := l.Edit(FieldSystemPrompt, "sys"); err != nil {
			t.Fatalf("Edit() error: %v", err)
		}

		_, err := l.Save(context.Background())
		if !fault.Is(err, fault.DuplicateName) {
			t.Fatalf("expected duplicate name fault, got %v", err)
		}
		if got := l.State(); got != StateDirty {
			t.Errorf("expected still dirty after failed save, got %s", got)
		}
		if l.Working().Name != "Taken" {
			t.Error("expected edits preserved after failed save")
		}
	})
}

func TestLifecycle_SaveAs(t *testing.T) {
	store := &fakeStore{nextID: "copy-id"}
	l := New(store, testDefaults(), nil)
	if err := l.Load(record("orig-id", prompt.Fields{Name: "Original", SystemPrompt: "s", Model: "m", Temperature: 0.5})); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := l.Edit(FieldSystemPrompt, "changed"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}

	rec, err := l.SaveAs(context.Background(), "Copy")
	if err != nil {
		t.Fatalf("SaveAs() error: %v", err)
	}

	if len(store.updates) != 0 {
		t.Error("save-as must never update the original record")
	}
	if len(store.creates) != 1 || store.creates[0].Name != "Copy" {
		t.Fatalf("expected create under the new name, got %+v", store.creates)
	}
	if store.creates[0].SystemPrompt != "changed" {
		t.Error("expected edits carried into the copy")
	}
	if rec.ID != "copy-id" {
		t.Errorf("expected new id, got %q", rec.ID)
	}
	if w := l.Working(); w.ID != "copy-id" || w.Name != "Copy" {
		t.Errorf("expected working prompt detached onto the copy, got %+v", w)
	}
	if got := l.State(); got != StateClean {
		t.Errorf("expected clean after save-as, got %s", got)
	}
}

func TestLifecycle_RequestNavigate(t *testing.T) {
	l := New(&fakeStore{}, testDefaults(), nil)

	if got := l.RequestNavigate(); got != Proceed {
		t.Errorf("expected proceed for empty session, got %s", got)
	}

	if err := l.Edit(FieldName, "pending"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if got := l.RequestNavigate(); got != ConfirmationRequired {
		t.Errorf("expected confirmation for dirty session, got %s", got)
	}

	if err := l.Discard(); err != nil {
		t.Fatalf("Discard() error: %v", err)
	}
	if got := l.RequestNavigate(); got != Proceed {
		t.Errorf("expected proceed after discard, got %s", got)
	}
}

func TestLifecycle_OnChange(t *testing.T) {
	l := New(&fakeStore{}, testDefaults(), nil)

	var states []State
	l.OnChange(func(s State) { states = append(states, s) })

	if err := l.Edit(FieldName, "x"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if err := l.Discard(); err != nil {
		t.Fatalf("Discard() error: %v", err)
	}

	if len(states) != 2 || states[0] != StateDirty || states[1] != StateEmpty {
		t.Errorf("unexpected state sequence: %v", states)
	}
}

func TestLifecycle_SaveInProgressGuards(t *testing.T) {
	// The slow store blocks the save so concurrent mutations can be observed.
	block := make(chan struct{})
	store := &blockingStore{release: block}
	l := New(store, testDefaults(), nil)
	if err := l.Edit(FieldName, "Slow"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if err := l.Edit(FieldSystemPrompt, "sys"); err != nil {
		t.Fatalf("Edit() error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := l.Save(context.Background())
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for l.State() != StateSaving {
		select {
		case <-deadline:
			t.Fatal("save never entered the saving state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := l.Edit(FieldName, "nope"); !fault.Is(err, fault.AlreadyInProgress) {
		t.Errorf("expected already in progress fault on edit, got %v", err)
	}
	if err := l.Discard(); !fault.Is(err, fault.AlreadyInProgress) {
		t.Errorf("expected already in progress fault on discard, got %v", err)
	}
	if _, err := l.Save(context.Background()); !fault.Is(err, fault.AlreadyInProgress) {
		t.Errorf("expected already in progress fault on second save, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if got := l.State(); got != StateClean {
		t.Errorf("expected clean after save completes, got %s", got)
	}
}

type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) Create(ctx context.Context, fields prompt.Fields) (*prompt.Record, error) {
	<-s.release
	return record("blocked-id", fields), nil
}

func (s *blockingStore) Update(ctx context.Context, id string, fields prompt.Fields) (*prompt.Record, error) {
	<-s.release
	return record(id, fields), nil
}
