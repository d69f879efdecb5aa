package deps

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available tool: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestRequirementsCoverConfiguredTools(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reqs := Requirements(cfg)

	byName := make(map[string]Requirement, len(reqs))
	for _, req := range reqs {
		byName[req.Name] = req
	}
	if byName["FFmpeg"].Command != cfg.Render.Binary {
		t.Errorf("ffmpeg command = %q", byName["FFmpeg"].Command)
	}
	if byName["Edge TTS"].Command != cfg.Speech.Binary {
		t.Errorf("tts command = %q", byName["Edge TTS"].Command)
	}
	if !byName["WhisperX"].Optional {
		t.Error("whisperx should be optional; captions fall back to segment timings")
	}
}
