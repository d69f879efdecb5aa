package stage_test

import (
	"testing"

	"reelsmith/internal/stage"
)

func TestOrdering(t *testing.T) {
	all := stage.All()
	if len(all) != 7 {
		t.Fatalf("expected 7 stages, got %d", len(all))
	}
	if all[0] != stage.Script || all[len(all)-1] != stage.Publish {
		t.Fatalf("unexpected stage order: %v", all)
	}
	for i, s := range all {
		if s.Index() != i {
			t.Fatalf("stage %s index = %d, want %d", s, s.Index(), i)
		}
	}
}

func TestBefore(t *testing.T) {
	before := stage.Before(stage.Captions)
	if len(before) != 2 || before[0] != stage.Script || before[1] != stage.Audio {
		t.Fatalf("unexpected predecessors for captions: %v", before)
	}
	if got := stage.Before(stage.Script); got != nil {
		t.Fatalf("expected no predecessors for script, got %v", got)
	}
}

func TestNext(t *testing.T) {
	next, ok := stage.Render.Next()
	if !ok || next != stage.Publish {
		t.Fatalf("render.Next() = %v, %v", next, ok)
	}
	if _, ok := stage.Publish.Next(); ok {
		t.Fatal("publish should have no successor")
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want stage.Stage
		ok   bool
	}{
		{"script", stage.Script, true},
		{" IMAGE_PLAN ", stage.ImagePlan, true},
		{"imageplan", stage.ImagePlan, true},
		{"plan", stage.ImagePlan, true},
		{"render", stage.Render, true},
		{"unknown", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := stage.Parse(tc.in)
		if ok != tc.ok {
			t.Fatalf("Parse(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := stage.ImagePlan.Label(); got != "Image Plan" {
		t.Fatalf("ImagePlan.Label() = %q", got)
	}
	if got := stage.Script.Label(); got != "Script" {
		t.Fatalf("Script.Label() = %q", got)
	}
}
