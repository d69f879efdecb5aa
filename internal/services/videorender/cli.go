// Package videorender shells out to ffmpeg to assemble a video variant
// from the narration audio, the caption track, and the timed image plan.
package videorender

import (
	"bufio"
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
	"reelsmith/internal/render"
)

var commandContext = exec.CommandContext

// Config captures renderer settings.
type Config struct {
	Binary  string
	WorkDir string
}

// Uploader pushes the finished video to artifact storage and returns its
// stored reference. A nil uploader leaves local paths as references.
type Uploader interface {
	PutFile(ctx context.Context, objectName, filePath string) (string, error)
}

// Downloader fetches stored inputs to local paths. A nil downloader treats
// references as local paths.
type Downloader interface {
	FetchFile(ctx context.Context, objectName, destPath string) error
}

// CLI implements a render pass as one ffmpeg invocation.
type CLI struct {
	cfg        Config
	uploader   Uploader
	downloader Downloader
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.cfg.Binary = binary
		}
	}
}

// NewCLI constructs a renderer client. uploader and downloader may be nil.
func NewCLI(cfg Config, uploader Uploader, downloader Downloader, opts ...Option) *CLI {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	cli := &CLI{cfg: cfg, uploader: uploader, downloader: downloader}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// RenderVariant assembles one variant and returns its stored reference.
// Progress is parsed from ffmpeg's -progress key=value stream against the
// timeline's total duration.
func (c *CLI) RenderVariant(ctx context.Context, req render.Request, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if req.AudioRef == "" {
		return "", errors.New("render: audio reference required")
	}
	if len(req.Timeline) == 0 || len(req.Images) == 0 {
		return "", errors.New("render: image timeline required")
	}

	workDir := req.OutputDir
	if workDir == "" {
		workDir = filepath.Join(c.workRoot(), string(req.Variant))
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("render: create work dir: %w", err)
	}

	audioPath, err := c.localize(ctx, req.AudioRef, filepath.Join(workDir, "narration.mp3"))
	if err != nil {
		return "", fmt.Errorf("render: fetch audio: %w", err)
	}
	imagePaths := make([]string, len(req.Images))
	for i, img := range req.Images {
		dest := filepath.Join(workDir, fmt.Sprintf("scene_%03d.jpg", i))
		path, err := c.localize(ctx, img.Ref, dest)
		if err != nil {
			return "", fmt.Errorf("render: fetch image %d: %w", i, err)
		}
		imagePaths[i] = path
	}

	listPath := filepath.Join(workDir, "timeline.ffconcat")
	if err := writeTimeline(listPath, imagePaths, req.Timeline); err != nil {
		return "", err
	}
	captionsPath := ""
	if strings.TrimSpace(req.CaptionsText) != "" {
		captionsPath = filepath.Join(workDir, "captions.srt")
		if err := os.WriteFile(captionsPath, []byte(req.CaptionsText), 0o644); err != nil {
			return "", fmt.Errorf("render: write captions: %w", err)
		}
	}

	outPath := filepath.Join(workDir, string(req.Variant)+".mp4")
	totalDuration := req.Timeline[len(req.Timeline)-1].EndSec
	args := buildArgs(listPath, audioPath, captionsPath, outPath, req.EffectFilters)

	if err := c.runWithProgress(ctx, args, totalDuration, rep); err != nil {
		return "", err
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("render: missing output: %w", err)
	}
	rep.Ready(outPath)

	ref := outPath
	if c.uploader != nil {
		objectName := fmt.Sprintf("videos/%d_%s.mp4", req.ProjectID, req.Variant)
		ref, err = c.uploader.PutFile(ctx, objectName, outPath)
		if err != nil {
			return "", fmt.Errorf("render: store output: %w", err)
		}
	}
	return ref, nil
}

// buildArgs assembles one ffmpeg invocation. Effect filters and the
// captions filter share a single -vf chain; ffmpeg keeps only the last -vf
// flag, so separate flags would silently drop one of them.
func buildArgs(listPath, audioPath, captionsPath, outPath string, effectFilters []string) []string {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", audioPath,
	}
	filters := make([]string, 0, len(effectFilters)+1)
	for _, f := range effectFilters {
		if strings.TrimSpace(f) != "" {
			filters = append(filters, f)
		}
	}
	// Captions render after the effect filters.
	if captionsPath != "" {
		filters = append(filters, "subtitles="+captionsPath)
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	args = append(args,
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		"-progress", "pipe:1", "-nostats",
		outPath,
	)
	return args
}

// writeTimeline emits an ffconcat list pinning each image to its plan
// interval. Image i shows for the duration of timeline entry i; extra plan
// entries beyond the image count are ignored since a reconciled plan always
// matches.
func writeTimeline(listPath string, imagePaths []string, timeline []project.ImagePrompt) error {
	var list strings.Builder
	list.WriteString("ffconcat version 1.0\n")
	for i, path := range imagePaths {
		duration := 1.0
		if i < len(timeline) {
			duration = timeline[i].EndSec - timeline[i].StartSec
		}
		if duration <= 0 {
			duration = 1.0
		}
		fmt.Fprintf(&list, "file '%s'\nduration %.3f\n", path, duration)
	}
	// The concat demuxer needs the last file repeated to honor its duration.
	if len(imagePaths) > 0 {
		fmt.Fprintf(&list, "file '%s'\n", imagePaths[len(imagePaths)-1])
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("render: write timeline: %w", err)
	}
	return nil
}

func (c *CLI) runWithProgress(ctx context.Context, args []string, totalDuration float64, rep progress.Reporter) error {
	cmd := commandContext(ctx, c.cfg.Binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("render: stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("render: start %s: %w", c.cfg.Binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || totalDuration <= 0 {
				continue
			}
			percent := float64(us) / 1e6 / totalDuration * 100
			if percent > 100 {
				percent = 100
			}
			rep.Progress(percent, "encoding")
		case "progress":
			if value == "end" {
				rep.Progress(100, "encoded")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("render: read progress: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 200 {
			detail = "..." + detail[len(detail)-200:]
		}
		return fmt.Errorf("render: %s failed: %w: %s", c.cfg.Binary, err, detail)
	}
	return nil
}

func (c *CLI) localize(ctx context.Context, ref, dest string) (string, error) {
	if c.downloader == nil {
		return ref, nil
	}
	if err := c.downloader.FetchFile(ctx, ref, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (c *CLI) workRoot() string {
	if c.cfg.WorkDir != "" {
		return c.cfg.WorkDir
	}
	return os.TempDir()
}

var _ render.Renderer = (*CLI)(nil)
