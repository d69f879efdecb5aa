package sceneplanner

import (
	"context"
	"strings"
	"testing"
)

type fakeCompleter struct {
	reply string
}

func (f *fakeCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	return f.reply, nil
}

func TestPlanScenesUniformTimings(t *testing.T) {
	completer := &fakeCompleter{reply: `{"scenes":[
		{"prompt":"a harbor at dawn","description":"opening"},
		{"prompt":"a storm front","description":"conflict"},
		{"prompt":"calm water","description":"resolution"}]}`}
	planner := New(completer, "")

	plan, err := planner.PlanScenes(context.Background(), "script", 120, 3, nil)
	if err != nil {
		t.Fatalf("PlanScenes failed: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("plan has %d entries", len(plan))
	}
	if plan[0].StartSec != 0 || plan[0].EndSec != 40 || plan[2].EndSec != 120 {
		t.Fatalf("timings = %+v", plan)
	}
	if plan[1].Prompt != "a storm front" {
		t.Fatalf("prompt = %q", plan[1].Prompt)
	}
}

func TestPlanScenesPadsShortReply(t *testing.T) {
	completer := &fakeCompleter{reply: `{"scenes":[{"prompt":"only one","description":"d"}]}`}
	planner := New(completer, "")

	plan, err := planner.PlanScenes(context.Background(), "script", 90, 3, nil)
	if err != nil {
		t.Fatalf("PlanScenes failed: %v", err)
	}
	if plan[0].Prompt != "only one" {
		t.Fatalf("first prompt = %q", plan[0].Prompt)
	}
	if plan[1].Prompt != "Scene 2" || plan[2].Prompt != "Scene 3" {
		t.Fatalf("placeholders = %q, %q", plan[1].Prompt, plan[2].Prompt)
	}
}

func TestPlanScenesAppendsStyle(t *testing.T) {
	completer := &fakeCompleter{reply: `{"scenes":[{"prompt":"a lighthouse","description":"d"}]}`}
	planner := New(completer, "oil painting")

	plan, err := planner.PlanScenes(context.Background(), "script", 30, 1, nil)
	if err != nil {
		t.Fatalf("PlanScenes failed: %v", err)
	}
	if !strings.HasSuffix(plan[0].Prompt, ", oil painting") {
		t.Fatalf("style not applied: %q", plan[0].Prompt)
	}
}

func TestPlanScenesRejectsBadInputs(t *testing.T) {
	planner := New(&fakeCompleter{reply: `{"scenes":[]}`}, "")
	if _, err := planner.PlanScenes(context.Background(), "", 30, 1, nil); err == nil {
		t.Fatal("expected error for empty script")
	}
	if _, err := planner.PlanScenes(context.Background(), "s", 30, 0, nil); err == nil {
		t.Fatal("expected error for zero scene count")
	}
	if _, err := planner.PlanScenes(context.Background(), "s", 0, 1, nil); err == nil {
		t.Fatal("expected error for zero duration")
	}
	if _, err := planner.PlanScenes(context.Background(), "s", 30, 1, nil); err == nil {
		t.Fatal("expected error for empty scene list")
	}
}
