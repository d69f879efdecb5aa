// Package notifications pushes pipeline milestones to an ntfy topic.
// When no topic is configured, a noop implementation is returned so
// callers never have to nil-check.
package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/pipeline"
)

const userAgent = "Reelsmith-Go/0.1.0"

// NewService builds a notifier backed by ntfy when a topic is configured.
func NewService(cfg config.Notifications, logger *slog.Logger) pipeline.Notifier {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		stages:    cfg.Stages,
		publishes: cfg.Publishes,
		errors:    cfg.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	logger    *slog.Logger
	stages    bool
	publishes bool
	errors    bool
}

func (n *ntfyService) StageComplete(ctx context.Context, projectID int64, stageName string) {
	if !n.stages {
		return
	}
	n.send(ctx, payload{
		title:   "Reelsmith - Stage Complete",
		message: fmt.Sprintf("Project %d: %s finished", projectID, stageName),
		tags:    []string{"reelsmith", "stage", "completed"},
	})
}

func (n *ntfyService) PublishComplete(ctx context.Context, projectID int64, url string) {
	if !n.publishes {
		return
	}
	message := fmt.Sprintf("Project %d published", projectID)
	if url = strings.TrimSpace(url); url != "" {
		message = fmt.Sprintf("%s\n%s", message, url)
	}
	n.send(ctx, payload{
		title:    "Reelsmith - Published",
		message:  message,
		tags:     []string{"reelsmith", "publish", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) OperationFailed(ctx context.Context, projectID int64, stageName, reason string) {
	if !n.errors {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	n.send(ctx, payload{
		title:    "Reelsmith - Error",
		message:  fmt.Sprintf("Project %d failed during %s: %s", projectID, stageName, reason),
		tags:     []string{"reelsmith", "error", "alert"},
		priority: "high",
	})
}

// send delivers one notification. Delivery failures are logged and
// swallowed so a flaky topic never disturbs the pipeline.
func (n *ntfyService) send(ctx context.Context, data payload) {
	if n == nil || n.client == nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		n.logger.Warn("build ntfy request failed", logging.Error(err))
		return
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("send ntfy notification failed", logging.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		n.logger.Warn("ntfy rejected notification",
			logging.Int("status", resp.StatusCode),
			logging.String("body", strings.TrimSpace(string(body))))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
}

type noopService struct{}

func (noopService) StageComplete(context.Context, int64, string)           {}
func (noopService) PublishComplete(context.Context, int64, string)         {}
func (noopService) OperationFailed(context.Context, int64, string, string) {}

var _ pipeline.Notifier = (*ntfyService)(nil)
var _ pipeline.Notifier = noopService{}
