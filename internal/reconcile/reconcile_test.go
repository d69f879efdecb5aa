package reconcile_test

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"reelsmith/internal/project"
	"reelsmith/internal/reconcile"
)

func uniformPlan(count int, totalDuration float64) []project.ImagePrompt {
	prompts := make([]project.ImagePrompt, count)
	interval := totalDuration / float64(count)
	for i := range prompts {
		prompts[i] = project.ImagePrompt{
			Index:            i,
			Prompt:           fmt.Sprintf("prompt %d", i+1),
			SceneDescription: fmt.Sprintf("scene %d", i+1),
			StartSec:         float64(i) * interval,
			EndSec:           float64(i+1) * interval,
		}
	}
	prompts[count-1].EndSec = totalDuration
	return prompts
}

func TestApplyShrinksPlanToProducedImages(t *testing.T) {
	// Ten planned prompts over 600s but only eight images survived.
	original := uniformPlan(10, 600)

	corrected, repaired, err := reconcile.Apply(original, 8, 600)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !repaired {
		t.Fatal("expected a repair for a 10 vs 8 mismatch")
	}
	if len(corrected) != 8 {
		t.Fatalf("corrected plan has %d entries, want 8", len(corrected))
	}
	for i, p := range corrected {
		if p.Prompt != fmt.Sprintf("prompt %d", i+1) {
			t.Fatalf("entry %d lost its text: %q", i, p.Prompt)
		}
		wantStart := float64(i) * 75
		wantEnd := float64(i+1) * 75
		if math.Abs(p.StartSec-wantStart) > 1e-9 || math.Abs(p.EndSec-wantEnd) > 1e-9 {
			t.Fatalf("entry %d spans [%.3f, %.3f], want [%.3f, %.3f]",
				i, p.StartSec, p.EndSec, wantStart, wantEnd)
		}
	}
	if corrected[7].EndSec != 600 {
		t.Fatalf("partition ends at %.3f, want 600", corrected[7].EndSec)
	}
}

func TestApplyGrowsPlanWithPlaceholders(t *testing.T) {
	original := uniformPlan(3, 90)

	corrected, repaired, err := reconcile.Apply(original, 5, 90)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !repaired || len(corrected) != 5 {
		t.Fatalf("repaired=%v len=%d", repaired, len(corrected))
	}
	if corrected[2].Prompt != "prompt 3" {
		t.Fatalf("surviving entry overwritten: %q", corrected[2].Prompt)
	}
	if corrected[3].Prompt != "Scene 4" || corrected[4].Prompt != "Scene 5" {
		t.Fatalf("placeholders = %q, %q", corrected[3].Prompt, corrected[4].Prompt)
	}
}

func TestApplyNoOpWhenConsistent(t *testing.T) {
	plan := uniformPlan(4, 120)

	got, repaired, err := reconcile.Apply(plan, 4, 120)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if repaired {
		t.Fatal("consistent plan must not be repaired")
	}
	if !reflect.DeepEqual(got, plan) {
		t.Fatal("consistent plan was modified")
	}
}

func TestApplyIdempotent(t *testing.T) {
	original := uniformPlan(10, 600)

	once, _, err := reconcile.Apply(original, 8, 600)
	if err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	twice, repaired, err := reconcile.Apply(once, 8, 600)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if repaired {
		t.Fatal("second pass over a repaired plan must be a no-op")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatal("second pass changed the plan")
	}
}

func TestApplyRepairsTimingDrift(t *testing.T) {
	// Count matches but an interval was edited to leave a gap.
	plan := uniformPlan(4, 120)
	plan[1].EndSec = 50
	plan[1].StartSec = 40

	corrected, repaired, err := reconcile.Apply(plan, 4, 120)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !repaired {
		t.Fatal("expected gap to trigger a repair")
	}
	if !reconcile.Consistent(corrected, 4, 120) {
		t.Fatal("repaired plan still inconsistent")
	}
}

func TestPlanRejectsNegativeInputs(t *testing.T) {
	if _, err := reconcile.Plan(nil, -1, 10); err == nil {
		t.Fatal("expected error for negative image count")
	}
	if _, err := reconcile.Plan(nil, 2, -1); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestPlanZeroImages(t *testing.T) {
	corrected, err := reconcile.Plan(uniformPlan(3, 90), 0, 90)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(corrected) != 0 {
		t.Fatalf("expected empty plan, got %d entries", len(corrected))
	}
}

func TestConsistentToleratesTinyDrift(t *testing.T) {
	plan := uniformPlan(3, 90)
	plan[1].StartSec += 0.0004
	if !reconcile.Consistent(plan, 3, 90) {
		t.Fatal("sub-millisecond drift should count as consistent")
	}
	plan[1].StartSec += 0.01
	if reconcile.Consistent(plan, 3, 90) {
		t.Fatal("ten-millisecond drift should be inconsistent")
	}
}
