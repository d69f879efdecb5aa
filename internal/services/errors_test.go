package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelsmith/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrCollaboratorFailed, "audio", "synthesize", "engine exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrCollaboratorFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"audio", "synthesize", "engine exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "render", "pass", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(nil) {
		t.Fatal("nil error must not be retryable")
	}
	cfgErr := services.Wrap(services.ErrConfiguration, "publish", "auth", "missing token", nil)
	if services.Retryable(cfgErr) {
		t.Fatal("configuration errors are not retryable")
	}
	collabErr := services.Wrap(services.ErrCollaboratorFailed, "images", "generate", "backend 500", nil)
	if !services.Retryable(collabErr) {
		t.Fatal("collaborator failures should be retryable")
	}
}

func TestMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrPreconditionNotMet, "captions", "advance", "audio artifact missing", nil)
	got := services.Message(err)
	if strings.Contains(got, services.ErrPreconditionNotMet.Error()) {
		t.Fatalf("marker prefix should be stripped, got %q", got)
	}
	if !strings.Contains(got, "audio artifact missing") {
		t.Fatalf("expected detail in message, got %q", got)
	}
	if services.Message(nil) != "" {
		t.Fatal("nil error should produce empty message")
	}
}
