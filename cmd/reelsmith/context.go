package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/objstore"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/project"
	"reelsmith/internal/render"
	"reelsmith/internal/services/captions"
	"reelsmith/internal/services/imagegen"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/publisher"
	"reelsmith/internal/services/sceneplanner"
	"reelsmith/internal/services/scriptwriter"
	"reelsmith/internal/services/speech"
	"reelsmith/internal/services/transcript"
	"reelsmith/internal/services/videorender"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// configPath returns the --config override, empty when the default search
// path applies.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the project database for read-mostly commands that never
// invoke collaborators.
func (c *commandContext) withStore(fn func(*config.Config, *project.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := project.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withController assembles the full collaborator stack and hands the caller
// a ready pipeline controller.
func (c *commandContext) withController(ctx context.Context, fn func(*config.Config, *project.Store, *pipeline.Controller) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromPaths(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return err
	}
	store, err := project.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	controller, err := buildController(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	return fn(cfg, store, controller)
}

func buildController(ctx context.Context, cfg *config.Config, store *project.Store, logger *slog.Logger) (*pipeline.Controller, error) {
	var artifacts *objstore.Store
	if strings.TrimSpace(cfg.Storage.Endpoint) != "" {
		var err error
		artifacts, err = objstore.New(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
	}

	// A nil concrete store must stay a nil interface value downstream.
	var speechUploader speech.Uploader
	var imageUploader imagegen.Uploader
	var renderUploader videorender.Uploader
	var captionsDownloader captions.Downloader
	var renderDownloader videorender.Downloader
	var publishDownloader publisher.Downloader
	if artifacts != nil {
		speechUploader = artifacts
		imageUploader = artifacts
		renderUploader = artifacts
		captionsDownloader = artifacts
		renderDownloader = artifacts
		publishDownloader = artifacts
	}

	workspace := cfg.Paths.WorkspaceDir
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	renderer := videorender.NewCLI(videorender.Config{
		Binary:  cfg.Render.Binary,
		WorkDir: filepath.Join(workspace, "renders"),
	}, renderUploader, renderDownloader)

	coordinator := render.New(renderer, map[project.Variant][]string{
		project.VariantBasic:   nil,
		project.VariantEffectA: cfg.Render.EffectSetA,
		project.VariantEffectB: cfg.Render.EffectSetB,
	}, logger)

	collab := pipeline.Collaborators{
		Transcript: transcript.NewClient(transcript.Config{
			TimeoutSeconds: cfg.Transcript.TimeoutSeconds,
			RetryAttempts:  cfg.Transcript.RetryAttempts,
		}),
		Script: scriptwriter.New(llmClient),
		Scenes: sceneplanner.New(llmClient, cfg.ImageGen.Style),
		Speech: speech.NewService(speech.Config{
			Binary:        cfg.Speech.Binary,
			Voice:         cfg.Speech.Voice,
			WorkDir:       filepath.Join(workspace, "audio"),
			FFmpegBinary:  cfg.Render.Binary,
			FFprobeBinary: cfg.FFprobeBinary(),
		}, speechUploader),
		Captions: captions.NewService(captions.Config{
			Binary:  cfg.Captions.Binary,
			Model:   cfg.Captions.Model,
			WorkDir: filepath.Join(workspace, "captions"),
		}, captionsDownloader),
		Images: imagegen.NewClient(imagegen.Config{
			BaseURL:        cfg.ImageGen.BaseURL,
			Width:          cfg.ImageGen.Width,
			Height:         cfg.ImageGen.Height,
			WorkDir:        filepath.Join(workspace, "images"),
			TimeoutSeconds: cfg.ImageGen.TimeoutSeconds,
		}, imageUploader),
		Renderer: coordinator,
		Publisher: publisher.NewClient(cfg.Publish, publisher.CredentialsFromEnv(),
			publishDownloader, filepath.Join(workspace, "publish")),
	}

	notifier := notifications.NewService(cfg.Notifications, logger)
	return pipeline.New(store, collab, cfg, logger, notifier), nil
}
