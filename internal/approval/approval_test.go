package approval_test

import (
	"encoding/json"
	"testing"

	"reelsmith/internal/approval"
	"reelsmith/internal/stage"
)

func TestApproveToggle(t *testing.T) {
	set := approval.NewSet()
	if set.IsApproved(stage.Script) {
		t.Fatal("fresh set should have no approvals")
	}
	set.Approve(stage.Script)
	set.Approve(stage.Render)
	if !set.IsApproved(stage.Script) || !set.IsApproved(stage.Render) {
		t.Fatal("approvals not recorded")
	}
	set.Unapprove(stage.Script)
	if set.IsApproved(stage.Script) {
		t.Fatal("unapprove did not clear mark")
	}
	if !set.IsApproved(stage.Render) {
		t.Fatal("unapprove cleared an unrelated stage")
	}
}

func TestApproveIgnoresUnknownStage(t *testing.T) {
	set := approval.NewSet()
	set.Approve(stage.Stage("bogus"))
	if len(set.List()) != 0 {
		t.Fatalf("unknown stage should be ignored, got %v", set.List())
	}
}

func TestListOrdered(t *testing.T) {
	set := approval.NewSet()
	set.Approve(stage.Images)
	set.Approve(stage.Script)
	set.Approve(stage.Audio)
	got := set.List()
	want := []stage.Stage{stage.Script, stage.Audio, stage.Images}
	if len(got) != len(want) {
		t.Fatalf("list = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list = %v, want %v", got, want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	set := approval.NewSet()
	set.Approve(stage.Audio)
	set.Approve(stage.Publish)

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded approval.Set
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.IsApproved(stage.Audio) || !decoded.IsApproved(stage.Publish) {
		t.Fatalf("round trip lost approvals: %v", decoded.List())
	}
	if len(decoded) != 2 {
		t.Fatalf("unexpected size: %d", len(decoded))
	}
}
