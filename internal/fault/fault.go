// Package fault defines the error taxonomy shared by the store, the Ollama
// client, the prompt lifecycle, and the library reconciler. Every failure
// that crosses a component boundary carries a Kind so callers (and the HTTP
// layer) can branch on category without string matching.
package fault

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// Validation means bad input shape or range; the request never reached
	// the network or the store.
	Validation Kind = "validation"
	// DuplicateName means the store's unique-name constraint was violated.
	DuplicateName Kind = "duplicate_name"
	// NotFound means a lookup by id (or name) matched nothing.
	NotFound Kind = "not_found"
	// ServiceUnavailable means the AI engine could not be reached.
	ServiceUnavailable Kind = "service_unavailable"
	// Timeout means the configured deadline elapsed before a response.
	Timeout Kind = "timeout"
	// AlreadyInProgress means a same-kind call was still pending.
	AlreadyInProgress Kind = "already_in_progress"
	// MalformedResponse means the engine replied with unparseable data.
	MalformedResponse Kind = "malformed_response"
	// StructuralImport means an import file failed shape validation before
	// any record was touched.
	StructuralImport Kind = "structural_import"
)

// Error is a categorized error with human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a categorized error with a formatted detail message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and detail to an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or "" if err carries no taxonomy.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// DetailOf returns the human-readable detail of err, falling back to
// err.Error() for uncategorized errors.
func DetailOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
