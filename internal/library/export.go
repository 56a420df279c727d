// Package library implements prompt library export and import: serializing
// the full store to a portable file and merging such a file back in under a
// conflict-resolution policy.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/promptlab/promptlab/internal/prompt"
)

// FormatVersion is the library file format marker. Files without it are
// rejected before any record is touched.
const FormatVersion = "1.0"

const exportedBy = "promptlab"

// Format selects the export serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format string, defaulting to JSON when empty.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("invalid export format %q: must be %q or %q", s, FormatJSON, FormatYAML)
	}
}

// Store is the persistence surface the library needs.
type Store interface {
	Create(ctx context.Context, f prompt.Fields) (*prompt.Record, error)
	Update(ctx context.Context, id string, f prompt.Fields) (*prompt.Record, error)
	List(ctx context.Context, search string) ([]*prompt.Record, error)
	Names(ctx context.Context) (map[string]string, error)
}

// Metadata describes an export file.
type Metadata struct {
	ExportTimestamp string `json:"export_timestamp" yaml:"export_timestamp"`
	TotalPrompts    int    `json:"total_prompts" yaml:"total_prompts"`
	FormatVersion   string `json:"format_version" yaml:"format_version"`
	ExportedBy      string `json:"exported_by" yaml:"exported_by"`
}

// File is a parsed library file: metadata plus the candidate entries in
// file order. Entries stay untyped until reconciliation so one malformed
// record cannot reject the whole batch.
type File struct {
	Metadata Metadata         `json:"metadata" yaml:"metadata"`
	Prompts  []map[string]any `json:"prompts" yaml:"prompts"`
}

// exportFile is the typed shape written by Export.
type exportFile struct {
	Metadata Metadata        `json:"metadata" yaml:"metadata"`
	Prompts  []prompt.Record `json:"prompts" yaml:"prompts"`
}

// Export serializes every stored prompt, ordered by name, with metadata.
func Export(ctx context.Context, store Store, format Format) ([]byte, *Metadata, error) {
	records, err := store.List(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prompts for export: %w", err)
	}

	file := exportFile{
		Metadata: Metadata{
			ExportTimestamp: time.Now().UTC().Format(time.RFC3339),
			TotalPrompts:    len(records),
			FormatVersion:   FormatVersion,
			ExportedBy:      exportedBy,
		},
		Prompts: make([]prompt.Record, len(records)),
	}
	for i, rec := range records {
		file.Prompts[i] = *rec
	}

	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize library as YAML: %w", err)
		}
		return data, &file.Metadata, nil
	default:
		data, err := json.MarshalIndent(file, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize library as JSON: %w", err)
		}
		return data, &file.Metadata, nil
	}
}
