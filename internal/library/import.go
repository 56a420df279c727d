package library

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/promptlab/promptlab/internal/fault"
)

// fileSchema rejects files missing the format version marker or carrying a
// non-array prompts payload before any record reaches reconciliation.
const fileSchema = `{
	"type": "object",
	"required": ["metadata", "prompts"],
	"properties": {
		"metadata": {
			"type": "object",
			"required": ["format_version"],
			"properties": {
				"format_version": {"type": "string"}
			}
		},
		"prompts": {
			"type": "array",
			"items": {"type": "object"}
		}
	}
}`

var compiledFileSchema = jsonschema.MustCompileString("library-file.json", fileSchema)

// Parse decodes a library file, auto-detecting JSON vs YAML, and validates
// its structure. Structural failures reject the whole file; individual
// record problems are deferred to reconciliation.
func Parse(data []byte) (*File, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fault.New(fault.StructuralImport, "import data is empty")
	}

	// Normalize YAML input through JSON so schema validation sees the
	// same value shapes either way.
	jsonData := []byte(trimmed)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fault.Wrap(fault.StructuralImport, err, "failed to parse YAML data")
		}
		var err error
		jsonData, err = json.Marshal(doc)
		if err != nil {
			return nil, fault.Wrap(fault.StructuralImport, err, "failed to normalize YAML data")
		}
	}

	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fault.Wrap(fault.StructuralImport, err, "failed to parse JSON data")
	}

	if err := compiledFileSchema.Validate(doc); err != nil {
		return nil, fault.Wrap(fault.StructuralImport, err, "import data is not a valid library file")
	}

	var file File
	if err := json.Unmarshal(jsonData, &file); err != nil {
		return nil, fault.Wrap(fault.StructuralImport, err, "failed to decode library file")
	}
	return &file, nil
}
