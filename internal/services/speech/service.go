// Package speech synthesizes narration audio by shelling out to a TTS
// engine, one invocation per sentence segment so any segment can be
// regenerated in isolation.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/progress"
	"reelsmith/internal/project"
)

// Config captures the TTS engine settings.
type Config struct {
	Binary        string
	Voice         string
	WorkDir       string
	FFmpegBinary  string
	FFprobeBinary string
}

// Uploader pushes a produced file to artifact storage and returns its
// stored reference. A nil uploader leaves local paths as references.
type Uploader interface {
	PutFile(ctx context.Context, objectName, filePath string) (string, error)
}

// Service drives the TTS engine.
type Service struct {
	cfg      Config
	uploader Uploader

	commandRunner func(ctx context.Context, name string, args ...string) error
	outputRunner  func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates a speech service. uploader may be nil.
func NewService(cfg Config, uploader Uploader) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "edge-tts"
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.FFprobeBinary == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	return &Service{cfg: cfg, uploader: uploader}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithOutputRunner sets a custom runner for commands whose stdout is parsed
// (for testing).
func (s *Service) WithOutputRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.outputRunner = runner
}

// Synthesize voices the whole script. It returns one AudioSegment per
// sentence plus the reference of the combined track.
func (s *Service) Synthesize(ctx context.Context, script string, rep progress.Reporter) ([]project.AudioSegment, string, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	pieces := SplitScript(script)
	if len(pieces) == 0 {
		return nil, "", errors.New("synthesize: narration script required")
	}
	if err := os.MkdirAll(s.workDir(), 0o755); err != nil {
		return nil, "", fmt.Errorf("synthesize: create work dir: %w", err)
	}

	segments := make([]project.AudioSegment, len(pieces))
	paths := make([]string, len(pieces))
	for i, text := range pieces {
		seg, path, err := s.synthesizeOne(ctx, i, text)
		if err != nil {
			return nil, "", err
		}
		segments[i] = seg
		paths[i] = path
		rep.Progress(float64(i+1)/float64(len(pieces))*90,
			fmt.Sprintf("synthesized segment %d of %d", i+1, len(pieces)))
	}

	combinedPath, err := s.concat(ctx, paths)
	if err != nil {
		return nil, "", err
	}
	combinedRef, err := s.store(ctx, "audio/full.mp3", combinedPath)
	if err != nil {
		return nil, "", err
	}
	rep.Progress(100, "narration audio ready")
	return segments, combinedRef, nil
}

// SynthesizeSegment re-voices a single segment, keeping its index. Only the
// segment's own reference, duration, and size change.
func (s *Service) SynthesizeSegment(ctx context.Context, segment project.AudioSegment, rep progress.Reporter) (project.AudioSegment, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if strings.TrimSpace(segment.Text) == "" {
		return project.AudioSegment{}, errors.New("synthesize segment: text required")
	}
	if err := os.MkdirAll(s.workDir(), 0o755); err != nil {
		return project.AudioSegment{}, fmt.Errorf("synthesize segment: create work dir: %w", err)
	}

	rep.Progress(20, fmt.Sprintf("re-synthesizing segment %d", segment.Index))
	seg, _, err := s.synthesizeOne(ctx, segment.Index, segment.Text)
	if err != nil {
		return project.AudioSegment{}, err
	}
	rep.Progress(100, fmt.Sprintf("segment %d ready", segment.Index))
	return seg, nil
}

func (s *Service) synthesizeOne(ctx context.Context, index int, text string) (project.AudioSegment, string, error) {
	var empty project.AudioSegment
	path := filepath.Join(s.workDir(), fmt.Sprintf("segment_%d.mp3", index))

	args := []string{"--voice", s.cfg.Voice, "--text", text, "--write-media", path}
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return empty, "", fmt.Errorf("synthesize segment %d: %w", index, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return empty, "", fmt.Errorf("synthesize segment %d: missing output: %w", index, err)
	}
	duration, err := s.probeDuration(ctx, path)
	if err != nil {
		return empty, "", fmt.Errorf("synthesize segment %d: %w", index, err)
	}
	ref, err := s.store(ctx, fmt.Sprintf("audio/segment_%d.mp3", index), path)
	if err != nil {
		return empty, "", err
	}
	return project.AudioSegment{
		Index:       index,
		Text:        text,
		AudioRef:    ref,
		DurationSec: duration,
		SizeBytes:   info.Size(),
	}, path, nil
}

// concat joins the per-segment files into one track via the concat demuxer.
func (s *Service) concat(ctx context.Context, paths []string) (string, error) {
	listPath := filepath.Join(s.workDir(), "segments.txt")
	var list strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&list, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("concat audio: write list: %w", err)
	}

	outPath := filepath.Join(s.workDir(), "full.mp3")
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath}
	if err := s.run(ctx, s.cfg.FFmpegBinary, args...); err != nil {
		return "", fmt.Errorf("concat audio: %w", err)
	}
	return outPath, nil
}

func (s *Service) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	out, err := s.runOutput(ctx, s.cfg.FFprobeBinary, args...)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: parse %q: %w", strings.TrimSpace(out), err)
	}
	return duration, nil
}

func (s *Service) store(ctx context.Context, objectName, path string) (string, error) {
	if s.uploader == nil {
		return path, nil
	}
	ref, err := s.uploader.PutFile(ctx, objectName, path)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", objectName, err)
	}
	return ref, nil
}

func (s *Service) workDir() string {
	if s.cfg.WorkDir != "" {
		return s.cfg.WorkDir
	}
	return os.TempDir()
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(output))
	}
	return nil
}

func (s *Service) runOutput(ctx context.Context, name string, args ...string) (string, error) {
	if s.outputRunner != nil {
		return s.outputRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(output), nil
}

func tail(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) > 200 {
		text = "..." + text[len(text)-200:]
	}
	return text
}
