package services_test

import (
	"context"
	"testing"

	"reelsmith/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.ProjectIDFromContext(ctx); ok {
		t.Fatal("expected no project id on empty context")
	}

	ctx = services.WithProjectID(ctx, 42)
	ctx = services.WithStage(ctx, "render")
	ctx = services.WithVariant(ctx, "effect_set_a")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("project id = %d, %v", id, ok)
	}
	if st, ok := services.StageFromContext(ctx); !ok || st != "render" {
		t.Fatalf("stage = %q, %v", st, ok)
	}
	if v, ok := services.VariantFromContext(ctx); !ok || v != "effect_set_a" {
		t.Fatalf("variant = %q, %v", v, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
	ctx = services.WithRequestID(context.Background(), "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("empty request id should not be stored")
	}
}
