package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(Validation, "field %s is bad", "name")
	if err.Kind != Validation {
		t.Errorf("expected validation kind, got %s", err.Kind)
	}
	if err.Detail != "field name is bad" {
		t.Errorf("unexpected detail: %q", err.Detail)
	}
	if got := err.Error(); got != "validation: field name is bad" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ServiceUnavailable, cause, "failed to connect")

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive errors.Is")
	}
	if got := err.Error(); got != "service_unavailable: failed to connect: connection refused" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(NotFound, "missing")); got != NotFound {
		t.Errorf("expected not_found, got %q", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty kind for plain error, got %q", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("expected empty kind for nil, got %q", got)
	}

	t.Run("sees through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(Timeout, "deadline elapsed"))
		if got := KindOf(err); got != Timeout {
			t.Errorf("expected timeout through fmt wrapping, got %q", got)
		}
	})
}

func TestIs(t *testing.T) {
	err := New(DuplicateName, "taken")
	if !Is(err, DuplicateName) {
		t.Error("expected match on own kind")
	}
	if Is(err, NotFound) {
		t.Error("expected no match on other kind")
	}
	if Is(nil, DuplicateName) {
		t.Error("expected no match on nil")
	}
}

func TestDetailOf(t *testing.T) {
	if got := DetailOf(New(Validation, "bad input")); got != "bad input" {
		t.Errorf("unexpected detail: %q", got)
	}
	if got := DetailOf(errors.New("plain failure")); got != "plain failure" {
		t.Errorf("expected fallback to Error(), got %q", got)
	}
	if got := DetailOf(nil); got != "" {
		t.Errorf("expected empty detail for nil, got %q", got)
	}
}
