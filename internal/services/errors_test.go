package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"storyreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "rendering", "concat", "failed", base)
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
	for _, fragment := range []string{"rendering", "concat", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestErrorDetails(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "api", "generate", "empty prompt", nil), "validation"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrTimeout, "images", "fetch", "", nil)), "timeout"},
		{services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "", errors.New("exit 1")), "external_tool"},
		{errors.New("plain"), "transient"},
	}
	for _, tc := range cases {
		kind, hint := services.ErrorDetails(tc.err)
		if kind != tc.kind {
			t.Fatalf("ErrorDetails(%v) kind = %q, want %q", tc.err, kind, tc.kind)
		}
		if tc.err != nil && hint == "" {
			t.Fatalf("expected hint for %v", tc.err)
		}
	}
}
