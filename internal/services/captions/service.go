// Package captions produces timed captions for synthesized narration by
// shelling out to a transcriber with word-level alignment.
package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelsmith/internal/progress"
	"reelsmith/internal/project"
)

// Config captures the transcriber settings.
type Config struct {
	Binary  string
	Model   string
	WorkDir string
}

// Downloader fetches a stored artifact to a local path. A nil downloader
// treats references as local paths.
type Downloader interface {
	FetchFile(ctx context.Context, objectName, destPath string) error
}

// Service drives the transcriber.
type Service struct {
	cfg        Config
	downloader Downloader

	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a captions service. downloader may be nil.
func NewService(cfg Config, downloader Downloader) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisperx"
	}
	if cfg.Model == "" {
		cfg.Model = "large-v3-turbo"
	}
	return &Service{cfg: cfg, downloader: downloader}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

type alignedSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
}

type transcribeOutput struct {
	Segments []alignedSegment `json:"segments"`
}

// Transcribe runs the transcriber over the narration audio and returns SRT
// text. Segments the aligner could not time are interpolated from their
// neighbors rather than failing the stage; if the transcriber produces
// nothing usable the captions fall back to the narration segments' own
// durations.
func (s *Service) Transcribe(ctx context.Context, audioRef string, segments []project.AudioSegment, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if strings.TrimSpace(audioRef) == "" {
		return "", errors.New("transcribe: audio reference required")
	}
	workDir := s.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: create work dir: %w", err)
	}

	audioPath, err := s.localize(ctx, audioRef, workDir)
	if err != nil {
		return "", err
	}

	rep.Progress(20, "aligning narration")
	args := []string{
		audioPath,
		"--model", s.cfg.Model,
		"--output_format", "json",
		"--output_dir", workDir,
	}
	runErr := s.run(ctx, s.cfg.Binary, args...)

	aligned, parseErr := s.readOutput(audioPath, workDir)
	if runErr != nil || parseErr != nil || len(aligned) == 0 {
		if len(segments) == 0 {
			if runErr != nil {
				return "", fmt.Errorf("transcribe: %w", runErr)
			}
			if parseErr != nil {
				return "", fmt.Errorf("transcribe: %w", parseErr)
			}
			return "", errors.New("transcribe: no aligned segments")
		}
		rep.Progress(90, "alignment unavailable, timing captions from narration segments")
		srt := fallbackSRT(segments)
		rep.Progress(100, "captions ready")
		return srt, nil
	}

	rep.Progress(90, "formatting captions")
	srt := buildSRT(interpolateTimings(aligned))
	rep.Progress(100, "captions ready")
	return srt, nil
}

func (s *Service) localize(ctx context.Context, audioRef, workDir string) (string, error) {
	if s.downloader == nil {
		return audioRef, nil
	}
	dest := filepath.Join(workDir, "narration"+filepath.Ext(audioRef))
	if err := s.downloader.FetchFile(ctx, audioRef, dest); err != nil {
		return "", fmt.Errorf("transcribe: fetch audio: %w", err)
	}
	return dest, nil
}

func (s *Service) readOutput(audioPath, workDir string) ([]alignedSegment, error) {
	base := filepath.Base(audioPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outPath := filepath.Join(workDir, stem+".json")

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, err
	}
	var parsed transcribeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", outPath, err)
	}
	out := make([]alignedSegment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		text := strings.TrimSpace(string(output))
		if len(text) > 200 {
			text = "..." + text[len(text)-200:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, text)
	}
	return nil
}
