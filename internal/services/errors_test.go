package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"clipper/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "trim", "ffmpeg", "exited non-zero", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"trim", "ffmpeg", "exited non-zero"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerIsInternal(t *testing.T) {
	err := services.Wrap(nil, "store", "save", "rename failed", nil)
	if services.IsDomain(err) {
		t.Fatalf("expected unmarked error to be internal, got %v", err)
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage marker fallback, got %v", err)
	}
}

func TestIsDomainClassification(t *testing.T) {
	cases := []struct {
		err    error
		domain bool
		kind   string
	}{
		{services.Wrap(services.ErrParse, "batch", "parse", "bad line", nil), true, "parse"},
		{services.Wrap(services.ErrValidation, "clip", "new", "invalid start", nil), true, "validation"},
		{services.Wrap(services.ErrNotFound, "clip", "find", "abc123", nil), true, "not_found"},
		{services.Wrap(services.ErrTimeout, "trim", "", "", nil), true, "timeout"},
		{services.Wrap(services.ErrCatalog, "catalog", "put clip", "unknown category", nil), true, "catalog"},
		{services.Wrap(services.ErrAuth, "catalog", "probe", "", nil), true, "auth"},
		{services.Wrap(services.ErrStorage, "store", "load", "", nil), false, "storage"},
		{fmt.Errorf("plain: %w", errors.New("io")), false, "internal"},
	}
	for _, tc := range cases {
		if got := services.IsDomain(tc.err); got != tc.domain {
			t.Fatalf("IsDomain(%v) = %v, want %v", tc.err, got, tc.domain)
		}
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
	if services.IsDomain(nil) {
		t.Fatal("nil must not be a domain error")
	}
}
