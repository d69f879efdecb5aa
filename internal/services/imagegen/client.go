// Package imagegen generates illustration images over HTTP, one request
// per plan entry. Individual failures produce a shorter image set rather
// than failing the stage; the plan is reconciled against the produced count
// afterwards.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/progress"
	"reelsmith/internal/project"
)

const (
	defaultBaseURL   = "https://image.pollinations.ai/prompt"
	defaultTimeout   = 60 * time.Second
	perImageAttempts = 3
	// Responses below this size are error pages, not images.
	minImageBytes = 100
)

// Config captures the image endpoint settings.
type Config struct {
	BaseURL        string
	Width          int
	Height         int
	WorkDir        string
	TimeoutSeconds int
}

// Uploader pushes a produced file to artifact storage and returns its
// stored reference. A nil uploader leaves local paths as references.
type Uploader interface {
	PutFile(ctx context.Context, objectName, filePath string) (string, error)
}

// Client fetches generated images.
type Client struct {
	cfg        Config
	uploader   Uploader
	httpClient *http.Client
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an image generation client. uploader may be nil.
func NewClient(cfg Config, uploader Uploader, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Width <= 0 {
		cfg.Width = 1920
	}
	if cfg.Height <= 0 {
		cfg.Height = 1080
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		uploader:   uploader,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Generate fetches one image per plan entry. Entries that keep failing are
// skipped; the returned refs are re-indexed densely so downstream
// consumers see a contiguous set.
func (c *Client) Generate(ctx context.Context, prompts []project.ImagePrompt, rep progress.Reporter) ([]project.ImageRef, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if len(prompts) == 0 {
		return nil, errors.New("generate images: empty plan")
	}
	workDir := c.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("generate images: create work dir: %w", err)
	}

	refs := make([]project.ImageRef, 0, len(prompts))
	var lastErr error
	for i, prompt := range prompts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		path := filepath.Join(workDir, fmt.Sprintf("scene_%03d.jpg", i))
		if err := c.fetchWithRetry(ctx, prompt, i, path); err != nil {
			lastErr = err
			rep.Progress(float64(i+1)/float64(len(prompts))*100,
				fmt.Sprintf("scene %d failed: %v", i+1, err))
			continue
		}
		ref, err := c.store(ctx, fmt.Sprintf("images/scene_%03d.jpg", i), path)
		if err != nil {
			lastErr = err
			continue
		}
		refs = append(refs, project.ImageRef{Index: len(refs), Ref: ref})
		rep.Progress(float64(i+1)/float64(len(prompts))*100,
			fmt.Sprintf("generated scene %d of %d", i+1, len(prompts)))
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("generate images: all %d scenes failed: %w", len(prompts), lastErr)
	}
	return refs, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, prompt project.ImagePrompt, index int, destPath string) error {
	var lastErr error
	for attempt := 1; attempt <= perImageAttempts; attempt++ {
		if err := c.fetchOnce(ctx, prompt, index, destPath); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.sleep(time.Duration(attempt) * time.Second)
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) fetchOnce(ctx context.Context, prompt project.ImagePrompt, index int, destPath string) error {
	// Deterministic seed per scene keeps regenerated runs reproducible.
	imageURL := fmt.Sprintf("%s/%s?width=%d&height=%d&nologo=true&seed=%d",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(prompt.Prompt),
		c.cfg.Width, c.cfg.Height, index*42+7)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) < minImageBytes {
		return fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (c *Client) store(ctx context.Context, objectName, path string) (string, error) {
	if c.uploader == nil {
		return path, nil
	}
	return c.uploader.PutFile(ctx, objectName, path)
}

func (c *Client) sleep(delay time.Duration) {
	if c.sleeper != nil {
		c.sleeper(delay)
		return
	}
	time.Sleep(delay)
}
