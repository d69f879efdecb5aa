package captions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/project"
)

func writeAlignment(t *testing.T, workDir, stem, payload string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(workDir, stem+".json"), []byte(payload), 0o644); err != nil {
		t.Fatalf("writing alignment output: %v", err)
	}
}

func TestTranscribeProducesSRT(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(Config{WorkDir: workDir}, nil)
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		writeAlignment(t, workDir, "narration",
			`{"segments":[
				{"start":0.0,"end":2.4,"text":"The ocean is deep."},
				{"start":2.4,"end":5.1,"text":"Nobody has seen its floor."}]}`)
		return nil
	})

	srt, err := svc.Transcribe(context.Background(), filepath.Join(workDir, "narration.mp3"), nil, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if !strings.Contains(srt, "00:00:00,000 --> 00:00:02,400") {
		t.Fatalf("first timing missing:\n%s", srt)
	}
	if !strings.Contains(srt, "Nobody has seen its floor.") {
		t.Fatalf("second line missing:\n%s", srt)
	}
}

func TestTranscribeInterpolatesMissingTimings(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(Config{WorkDir: workDir}, nil)
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		// The middle entry failed alignment.
		writeAlignment(t, workDir, "narration",
			`{"segments":[
				{"start":0.0,"end":2.0,"text":"First line."},
				{"text":"Unaligned middle line."},
				{"start":4.0,"end":6.0,"text":"Last line."}]}`)
		return nil
	})

	srt, err := svc.Transcribe(context.Background(), filepath.Join(workDir, "narration.mp3"), nil, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if !strings.Contains(srt, "Unaligned middle line.") {
		t.Fatalf("unaligned line dropped:\n%s", srt)
	}
	if !strings.Contains(srt, "00:00:02,000 --> 00:00:04,000") {
		t.Fatalf("interpolated timing missing:\n%s", srt)
	}
}

func TestTranscribeFallsBackToSegmentDurations(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(Config{WorkDir: workDir}, nil)
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		// Transcriber crashes and leaves no output.
		return os.ErrNotExist
	})

	segments := []project.AudioSegment{
		{Index: 0, Text: "First narrated line.", DurationSec: 3},
		{Index: 1, Text: "Second narrated line.", DurationSec: 2},
	}
	srt, err := svc.Transcribe(context.Background(), filepath.Join(workDir, "narration.mp3"), segments, nil)
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if !strings.Contains(srt, "00:00:00,000 --> 00:00:03,000") {
		t.Fatalf("fallback timing missing:\n%s", srt)
	}
	if !strings.Contains(srt, "00:00:03,000 --> 00:00:05,000") {
		t.Fatalf("second fallback timing missing:\n%s", srt)
	}
}

func TestTranscribeFailsWithoutAnySource(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(Config{WorkDir: workDir}, nil)
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return os.ErrNotExist
	})

	if _, err := svc.Transcribe(context.Background(), filepath.Join(workDir, "narration.mp3"), nil, nil); err == nil {
		t.Fatal("expected error when alignment fails and no segments exist")
	}
	if _, err := svc.Transcribe(context.Background(), "", nil, nil); err == nil {
		t.Fatal("expected error for empty audio reference")
	}
}
