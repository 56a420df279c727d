// Package prompt defines the persisted prompt record and its validation
// rules. Field limits match the store schema; validation always runs before
// a record reaches the store or the network.
package prompt

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/promptlab/promptlab/internal/fault"
)

const (
	MaxNameLength         = 255
	MaxSystemPromptLength = 50000
	MaxModelLength        = 100
	MaxDescriptionLength  = 1000

	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// invalidNameChars are rejected in prompt names. Names end up in export
// files and rename suffixes, so filesystem-hostile characters are excluded.
const invalidNameChars = `/\:*?"<>|`

// Record is a persisted prompt. ID and timestamps are assigned by the store.
type Record struct {
	ID           string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	SystemPrompt string    `json:"system_prompt" yaml:"system_prompt"`
	Model        string    `json:"model" yaml:"model"`
	Temperature  float64   `json:"temperature" yaml:"temperature"`
	CreatedAt    time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Fields is the mutable portion of a record, used for create and update.
type Fields struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
}

// Fields extracts the mutable fields of a record.
func (r *Record) Fields() Fields {
	return Fields{
		Name:         r.Name,
		Description:  r.Description,
		SystemPrompt: r.SystemPrompt,
		Model:        r.Model,
		Temperature:  r.Temperature,
	}
}

// Normalize trims surrounding whitespace from all text fields.
func (f Fields) Normalize() Fields {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.SystemPrompt = strings.TrimSpace(f.SystemPrompt)
	f.Model = strings.TrimSpace(f.Model)
	return f
}

// Validate checks all field constraints. The returned error carries the
// Validation fault kind with per-field detail.
func (f Fields) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, MaxNameLength),
			validation.By(validNameChars),
		),
		validation.Field(&f.SystemPrompt,
			validation.Required.Error("system prompt is required"),
			validation.Length(1, MaxSystemPromptLength),
		),
		validation.Field(&f.Model,
			validation.Required.Error("model is required"),
			validation.Length(1, MaxModelLength),
		),
		validation.Field(&f.Temperature,
			validation.Min(MinTemperature),
			validation.Max(MaxTemperature),
		),
		validation.Field(&f.Description,
			validation.Length(0, MaxDescriptionLength),
		),
	)
	if err != nil {
		return fault.Wrap(fault.Validation, err, "invalid prompt fields")
	}
	return nil
}

func validNameChars(value any) error {
	name, _ := value.(string)
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("name cannot contain any of %s", invalidNameChars)
	}
	return nil
}
