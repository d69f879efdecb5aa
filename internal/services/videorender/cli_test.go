package videorender

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/render"
)

type recordReporter struct {
	mu       sync.Mutex
	percents []float64
	readies  []any
}

func (r *recordReporter) Progress(percent float64, _ string) {
	r.mu.Lock()
	r.percents = append(r.percents, percent)
	r.mu.Unlock()
}

func (r *recordReporter) Ready(partial any) {
	r.mu.Lock()
	r.readies = append(r.readies, partial)
	r.mu.Unlock()
}

func setHelperCommand(t *testing.T, mode string, outPath string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"RENDER_HELPER_MODE="+mode,
			"RENDER_HELPER_OUT="+outPath)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
	return &captured
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("RENDER_HELPER_MODE") {
	case "success":
		fmt.Println("out_time_us=1000000")
		fmt.Println("out_time_us=3000000")
		fmt.Println("progress=end")
		if out := os.Getenv("RENDER_HELPER_OUT"); out != "" {
			os.WriteFile(out, []byte("video"), 0o644)
		}
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "muxer exploded")
		os.Exit(1)
	}
	os.Exit(0)
}

func renderRequest(workDir string) render.Request {
	return render.Request{
		Input: render.Input{
			ProjectID:    1,
			AudioRef:     filepath.Join(workDir, "narration.mp3"),
			CaptionsText: "1\n00:00:00,000 --> 00:00:02,000\nhello\n",
			Timeline: []project.ImagePrompt{
				{Index: 0, StartSec: 0, EndSec: 2},
				{Index: 1, StartSec: 2, EndSec: 4},
			},
			Images: []project.ImageRef{
				{Index: 0, Ref: filepath.Join(workDir, "scene_000.jpg")},
				{Index: 1, Ref: filepath.Join(workDir, "scene_001.jpg")},
			},
			OutputDir: workDir,
		},
		Variant: project.VariantBasic,
	}
}

func TestRenderVariantSuccess(t *testing.T) {
	workDir := t.TempDir()
	outPath := filepath.Join(workDir, "basic.mp4")
	captured := setHelperCommand(t, "success", outPath)

	cli := NewCLI(Config{}, nil, nil)
	rec := &recordReporter{}
	ref, err := cli.RenderVariant(context.Background(), renderRequest(workDir), rec)
	if err != nil {
		t.Fatalf("RenderVariant failed: %v", err)
	}
	if ref != outPath {
		t.Fatalf("ref = %q", ref)
	}

	// 3s of 4s timeline reported at out_time_us=3000000.
	saw75 := false
	for _, p := range rec.percents {
		if p == 75 {
			saw75 = true
		}
	}
	if !saw75 {
		t.Fatalf("percents = %v, want 75 present", rec.percents)
	}
	if len(rec.readies) != 1 {
		t.Fatalf("readies = %v", rec.readies)
	}

	args := *captured
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-progress pipe:1") {
		t.Fatalf("progress flags missing: %v", args)
	}
	if !strings.Contains(joined, "timeline.ffconcat") {
		t.Fatalf("timeline input missing: %v", args)
	}
	if !strings.Contains(joined, "subtitles=") {
		t.Fatalf("captions filter missing: %v", args)
	}
}

func TestRenderVariantMergesEffectFiltersWithCaptions(t *testing.T) {
	workDir := t.TempDir()
	captured := setHelperCommand(t, "success", filepath.Join(workDir, "effect_set_a.mp4"))

	cli := NewCLI(Config{}, nil, nil)
	req := renderRequest(workDir)
	req.Variant = project.VariantEffectA
	req.EffectFilters = []string{"zoompan=d=125", "vignette=angle=PI/5"}

	if _, err := cli.RenderVariant(context.Background(), req, progress.NopReporter{}); err != nil {
		t.Fatalf("RenderVariant failed: %v", err)
	}

	args := *captured
	var chains []string
	for i, arg := range args {
		if arg == "-vf" && i+1 < len(args) {
			chains = append(chains, args[i+1])
		}
	}
	// One -vf flag only; ffmpeg keeps just the last when repeated.
	if len(chains) != 1 {
		t.Fatalf("-vf chains = %v, want exactly one", chains)
	}
	chain := chains[0]
	if !strings.Contains(chain, "zoompan=d=125,vignette=angle=PI/5") {
		t.Fatalf("effect filters missing from chain %q", chain)
	}
	if !strings.Contains(chain, "subtitles=") {
		t.Fatalf("captions filter missing from chain %q", chain)
	}
	if strings.Index(chain, "subtitles=") < strings.Index(chain, "zoompan") {
		t.Fatalf("captions filter must follow effects: %q", chain)
	}
	// Filter expressions never appear as bare argv entries, where ffmpeg
	// would parse them as output file names.
	for _, arg := range args {
		if arg == "zoompan=d=125" || arg == "vignette=angle=PI/5" {
			t.Fatalf("effect filter passed as bare argument: %v", args)
		}
	}
}

func TestRenderVariantEffectFiltersWithoutCaptions(t *testing.T) {
	workDir := t.TempDir()
	captured := setHelperCommand(t, "success", filepath.Join(workDir, "effect_set_b.mp4"))

	cli := NewCLI(Config{}, nil, nil)
	req := renderRequest(workDir)
	req.Variant = project.VariantEffectB
	req.CaptionsText = ""
	req.EffectFilters = []string{"curves=preset=vintage", "", "noise=alls=6:allf=t"}

	if _, err := cli.RenderVariant(context.Background(), req, progress.NopReporter{}); err != nil {
		t.Fatalf("RenderVariant failed: %v", err)
	}
	joined := strings.Join(*captured, " ")
	if !strings.Contains(joined, "-vf curves=preset=vintage,noise=alls=6:allf=t") {
		t.Fatalf("filter chain missing: %v", *captured)
	}
	if strings.Contains(joined, "subtitles=") {
		t.Fatalf("unexpected captions filter: %v", *captured)
	}
}

func TestRenderVariantFailureIncludesStderr(t *testing.T) {
	workDir := t.TempDir()
	setHelperCommand(t, "fail", "")

	cli := NewCLI(Config{}, nil, nil)
	_, err := cli.RenderVariant(context.Background(), renderRequest(workDir), nil)
	if err == nil {
		t.Fatal("expected render failure")
	}
	if !strings.Contains(err.Error(), "muxer exploded") {
		t.Fatalf("stderr detail missing: %v", err)
	}
}

func TestRenderVariantValidatesInputs(t *testing.T) {
	cli := NewCLI(Config{}, nil, nil)
	if _, err := cli.RenderVariant(context.Background(), render.Request{}, nil); err == nil {
		t.Fatal("expected error for missing audio")
	}
	req := render.Request{Input: render.Input{AudioRef: "a.mp3"}}
	if _, err := cli.RenderVariant(context.Background(), req, nil); err == nil {
		t.Fatal("expected error for empty timeline")
	}
}

func TestWriteTimeline(t *testing.T) {
	workDir := t.TempDir()
	listPath := filepath.Join(workDir, "timeline.ffconcat")
	err := writeTimeline(listPath,
		[]string{"a.jpg", "b.jpg"},
		[]project.ImagePrompt{{StartSec: 0, EndSec: 2.5}, {StartSec: 2.5, EndSec: 4}})
	if err != nil {
		t.Fatalf("writeTimeline failed: %v", err)
	}
	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatalf("reading list: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "duration 2.500") || !strings.Contains(text, "duration 1.500") {
		t.Fatalf("durations missing:\n%s", text)
	}
	if strings.Count(text, "file 'b.jpg'") != 2 {
		t.Fatalf("final image not repeated:\n%s", text)
	}
}
