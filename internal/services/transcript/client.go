// Package transcript fetches the source material text a project was
// created from.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/progress"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultAttempts = 3
	maxBodyBytes    = 4 << 20
)

// Config captures fetch settings.
type Config struct {
	TimeoutSeconds int
	RetryAttempts  int
}

// Client retrieves source text over HTTP. Endpoints may serve plain text or
// a JSON document carrying a "transcript" field.
type Client struct {
	httpClient *http.Client
	attempts   int
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

// NewClient constructs a transcript client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch retrieves the source text at sourceURL.
func (c *Client) Fetch(ctx context.Context, sourceURL string, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", errors.New("fetch transcript: source url required")
	}

	rep.Progress(10, "fetching source material")
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		text, retryable, err := c.fetchOnce(ctx, sourceURL)
		if err == nil {
			rep.Progress(100, "source material fetched")
			return text, nil
		}
		lastErr = err
		if !retryable || attempt == c.attempts || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("fetch transcript: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, sourceURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", true, err
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= http.StatusInternalServerError
		return "", retryable, fmt.Errorf("http %d: %s", resp.StatusCode, summarize(body))
	}

	text := extractText(body, resp.Header.Get("Content-Type"))
	if text == "" {
		return "", false, errors.New("empty transcript body")
	}
	return text, false, nil
}

func extractText(body []byte, contentType string) string {
	if strings.Contains(contentType, "json") {
		var payload struct {
			Transcript string `json:"transcript"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if t := strings.TrimSpace(payload.Transcript); t != "" {
				return t
			}
			if t := strings.TrimSpace(payload.Text); t != "" {
				return t
			}
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func summarize(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	return strings.Join(strings.Fields(text), " ")
}
