package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/promptlab/promptlab/internal/fault"
	"github.com/promptlab/promptlab/internal/prompt"
)

// Policy decides what happens when an imported name collides with an
// existing record.
type Policy string

const (
	PolicySkip      Policy = "skip"
	PolicyOverwrite Policy = "overwrite"
	PolicyRename    Policy = "rename"
)

// ParsePolicy validates a policy string, defaulting to skip when empty.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case "":
		return PolicySkip, nil
	case PolicySkip, PolicyOverwrite, PolicyRename:
		return Policy(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("invalid conflict policy %q: must be %q, %q, or %q",
			s, PolicySkip, PolicyOverwrite, PolicyRename)
	}
}

// Outcome records how a single candidate was resolved.
type Outcome string

const (
	OutcomeInserted    Outcome = "inserted"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeRenamed     Outcome = "renamed"
	OutcomeOverwritten Outcome = "overwritten"
)

// Result is the per-record reconciliation outcome.
type Result struct {
	Name    string  `json:"name"`
	NewName string  `json:"new_name,omitempty"`
	Outcome Outcome `json:"outcome"`
	ID      string  `json:"id,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Summary aggregates the outcomes of a reconciliation run.
type Summary struct {
	Total       int `json:"total"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
	Overwritten int `json:"overwritten"`
	Renamed     int `json:"renamed"`
	Errors      int `json:"errors"`
}

// Report is the full outcome of reconciling one import batch.
type Report struct {
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

// Defaults fill in model and temperature for entries that omit them.
type Defaults struct {
	Model       string
	Temperature float64
}

// Reconciler merges import batches into the store.
type Reconciler struct {
	store    Store
	defaults Defaults
	logger   *slog.Logger
}

// NewReconciler creates a reconciler backed by the given store.
func NewReconciler(store Store, defaults Defaults, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, defaults: defaults, logger: logger}
}

// Reconcile merges the batch into the store under the given policy,
// processing candidates in file order. Each record's outcome is
// independent: partial success is expected and reported, never rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, file *File, policy Policy) (*Report, error) {
	names, err := r.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing prompt names: %w", err)
	}

	report := &Report{Results: make([]Result, 0, len(file.Prompts))}

	for _, entry := range file.Prompts {
		result := r.reconcileEntry(ctx, entry, names, policy)
		report.Results = append(report.Results, result)

		report.Summary.Total++
		switch {
		case result.Error != "" && result.Outcome == OutcomeSkipped:
			report.Summary.Errors++
			report.Summary.Skipped++
		case result.Outcome == OutcomeInserted:
			report.Summary.Inserted++
		case result.Outcome == OutcomeSkipped:
			report.Summary.Skipped++
		case result.Outcome == OutcomeOverwritten:
			report.Summary.Overwritten++
		case result.Outcome == OutcomeRenamed:
			report.Summary.Renamed++
		}
	}

	r.logger.Info("library import reconciled",
		"total", report.Summary.Total,
		"inserted", report.Summary.Inserted,
		"skipped", report.Summary.Skipped,
		"overwritten", report.Summary.Overwritten,
		"renamed", report.Summary.Renamed,
		"errors", report.Summary.Errors,
	)
	return report, nil
}

func (r *Reconciler) reconcileEntry(ctx context.Context, entry map[string]any, names map[string]string, policy Policy) Result {
	fields, err := r.entryFields(entry)
	if err != nil {
		return Result{
			Name:    entryName(entry),
			Outcome: OutcomeSkipped,
			Error:   fault.DetailOf(err),
		}
	}

	key := strings.ToLower(fields.Name)
	existingID, collides := names[key]

	if !collides {
		rec, err := r.store.Create(ctx, fields)
		if err != nil {
			return Result{Name: fields.Name, Outcome: OutcomeSkipped, Error: fault.DetailOf(err)}
		}
		names[key] = rec.ID
		return Result{Name: fields.Name, Outcome: OutcomeInserted, ID: rec.ID}
	}

	switch policy {
	case PolicyOverwrite:
		rec, err := r.store.Update(ctx, existingID, fields)
		if err != nil {
			return Result{Name: fields.Name, Outcome: OutcomeSkipped, Error: fault.DetailOf(err)}
		}
		return Result{Name: fields.Name, Outcome: OutcomeOverwritten, ID: rec.ID}

	case PolicyRename:
		newName := uniqueName(fields.Name, names)
		renamed := fields
		renamed.Name = newName
		rec, err := r.store.Create(ctx, renamed)
		if err != nil {
			return Result{Name: fields.Name, Outcome: OutcomeSkipped, Error: fault.DetailOf(err)}
		}
		names[strings.ToLower(newName)] = rec.ID
		return Result{Name: fields.Name, NewName: newName, Outcome: OutcomeRenamed, ID: rec.ID}

	default:
		return Result{Name: fields.Name, Outcome: OutcomeSkipped}
	}
}

// entryFields extracts and validates typed fields from an untyped entry.
func (r *Reconciler) entryFields(entry map[string]any) (prompt.Fields, error) {
	var zero prompt.Fields

	name, err := stringField(entry, "name")
	if err != nil {
		return zero, err
	}
	systemPrompt, err := stringField(entry, "system_prompt")
	if err != nil {
		return zero, err
	}
	description, err := stringField(entry, "description")
	if err != nil {
		return zero, err
	}
	model, err := stringField(entry, "model")
	if err != nil {
		return zero, err
	}
	if model == "" {
		model = r.defaults.Model
	}

	temperature := r.defaults.Temperature
	if raw, ok := entry["temperature"]; ok && raw != nil {
		switch t := raw.(type) {
		case float64:
			temperature = t
		case int:
			temperature = float64(t)
		default:
			return zero, fault.New(fault.Validation, "temperature must be a number")
		}
	}

	fields := prompt.Fields{
		Name:         name,
		Description:  description,
		SystemPrompt: systemPrompt,
		Model:        model,
		Temperature:  temperature,
	}.Normalize()

	if err := fields.Validate(); err != nil {
		return zero, err
	}
	return fields, nil
}

func stringField(entry map[string]any, key string) (string, error) {
	raw, ok := entry[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fault.New(fault.Validation, "%s must be a string", key)
	}
	return s, nil
}

func entryName(entry map[string]any) string {
	if name, ok := entry["name"].(string); ok && name != "" {
		return name
	}
	return "unknown"
}

// uniqueName appends " (n)" with the smallest n that avoids every known
// name, including ones added earlier in the same batch.
func uniqueName(base string, names map[string]string) string {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, taken := names[strings.ToLower(candidate)]; !taken {
			return candidate
		}
	}
}
