// Package publisher uploads rendered variants to YouTube through the Data
// API v3 using an OAuth2 refresh-token credential.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"reelsmith/internal/config"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/progress"
	"reelsmith/internal/project"
)

// Credentials carries the OAuth2 refresh-token credential for the channel.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CredentialsFromEnv reads the channel credential from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		ClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		RefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
	}
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Downloader fetches the stored video to a local path before upload. A nil
// downloader treats references as local paths.
type Downloader interface {
	FetchFile(ctx context.Context, objectName, destPath string) error
}

// insertCall is the slice of the YouTube videos.insert call the client
// performs, injectable for tests.
type insertCall func(ctx context.Context, video *youtube.Video, media *os.File) (*youtube.Video, error)

// Client publishes videos.
type Client struct {
	cfg        config.Publish
	creds      Credentials
	downloader Downloader
	workDir    string
	insert     insertCall
}

// Option customizes the client.
type Option func(*Client)

// WithInsertCall overrides the upload call (for testing).
func WithInsertCall(call insertCall) Option {
	return func(c *Client) {
		c.insert = call
	}
}

// NewClient constructs a publisher. downloader may be nil.
func NewClient(cfg config.Publish, creds Credentials, downloader Downloader, workDir string, opts ...Option) *Client {
	client := &Client{
		cfg:        cfg,
		creds:      creds,
		downloader: downloader,
		workDir:    workDir,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Publish uploads the rendered variant. A scheduled publish forces private
// visibility with a publishAt timestamp, as the platform requires.
func (c *Client) Publish(ctx context.Context, req pipeline.PublishRequest, rep progress.Reporter) (project.PublishResult, error) {
	var empty project.PublishResult
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if strings.TrimSpace(req.Title) == "" {
		return empty, errors.New("publish: title required")
	}
	if strings.TrimSpace(req.VideoRef) == "" {
		return empty, errors.New("publish: video reference required")
	}

	videoPath, err := c.localize(ctx, req.VideoRef)
	if err != nil {
		return empty, fmt.Errorf("publish: fetch video: %w", err)
	}
	file, err := os.Open(videoPath)
	if err != nil {
		return empty, fmt.Errorf("publish: open video: %w", err)
	}
	defer file.Close()

	video := c.buildVideo(req)
	rep.Progress(10, "uploading to platform")

	insert := c.insert
	if insert == nil {
		insert, err = c.apiInsertCall(ctx)
		if err != nil {
			return empty, err
		}
	}
	uploaded, err := insert(ctx, video, file)
	if err != nil {
		return empty, fmt.Errorf("publish: upload: %w", err)
	}

	rep.Progress(100, "upload complete")
	result := project.PublishResult{
		VideoID:     uploaded.Id,
		URL:         "https://www.youtube.com/watch?v=" + uploaded.Id,
		PublishedAt: time.Now().UTC(),
	}
	if video.Status != nil && video.Status.PublishAt != "" {
		result.ScheduledAt = video.Status.PublishAt
	}
	return result, nil
}

func (c *Client) buildVideo(req pipeline.PublishRequest) *youtube.Video {
	snippet := &youtube.VideoSnippet{
		Title:                req.Title,
		Description:          req.Description,
		CategoryId:           c.cfg.CategoryID,
		DefaultLanguage:      c.cfg.DefaultLanguage,
		DefaultAudioLanguage: c.cfg.DefaultLanguage,
	}
	status := &youtube.VideoStatus{
		PrivacyStatus:           c.cfg.Privacy,
		SelfDeclaredMadeForKids: c.cfg.MadeForKids,
		NotifySubscribers:       c.cfg.NotifySubscribers,
	}
	if !req.PublishAt.IsZero() {
		// Scheduling requires private until the publish time.
		status.PrivacyStatus = "private"
		status.PublishAt = req.PublishAt.UTC().Format(time.RFC3339)
	}
	return &youtube.Video{Snippet: snippet, Status: status}
}

func (c *Client) apiInsertCall(ctx context.Context) (insertCall, error) {
	if !c.creds.complete() {
		return nil, errors.New("publish: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, and YOUTUBE_REFRESH_TOKEN must be set")
	}
	conf := &oauth2.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: c.creds.RefreshToken,
		// Force a refresh on first use.
		Expiry: time.Now().Add(-time.Hour),
	}
	httpClient := oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("publish: youtube service: %w", err)
	}
	return func(ctx context.Context, video *youtube.Video, media *os.File) (*youtube.Video, error) {
		call := svc.Videos.Insert([]string{"snippet", "status"}, video)
		call.Media(media)
		return call.Context(ctx).Do()
	}, nil
}

func (c *Client) localize(ctx context.Context, ref string) (string, error) {
	if c.downloader == nil {
		return ref, nil
	}
	dest := c.workDir
	if dest == "" {
		dest = os.TempDir()
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dest, "upload.mp4")
	if err := c.downloader.FetchFile(ctx, ref, path); err != nil {
		return "", err
	}
	return path, nil
}
