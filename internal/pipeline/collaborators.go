package pipeline

import (
	"context"
	"time"

	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/render"
)

// TranscriptFetcher retrieves the source material text for a project that
// was created from a source URL.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, sourceURL string, rep progress.Reporter) (string, error)
}

// ScriptWriter rewrites source text into a narration script.
type ScriptWriter interface {
	WriteScript(ctx context.Context, sourceText string, rep progress.Reporter) (string, error)
}

// SpeechSynthesizer turns a narration script into voiced audio segments plus
// a combined track, and can re-synthesize a single segment in isolation.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, script string, rep progress.Reporter) ([]project.AudioSegment, string, error)
	SynthesizeSegment(ctx context.Context, segment project.AudioSegment, rep progress.Reporter) (project.AudioSegment, error)
}

// CaptionWriter produces timed captions for the synthesized audio.
type CaptionWriter interface {
	Transcribe(ctx context.Context, audioRef string, segments []project.AudioSegment, rep progress.Reporter) (string, error)
}

// ScenePlanner authors the timed image-prompt plan for a script.
type ScenePlanner interface {
	PlanScenes(ctx context.Context, script string, totalDuration float64, sceneCount int, rep progress.Reporter) ([]project.ImagePrompt, error)
}

// ImageGenerator produces one image per plan entry. A partial result with
// fewer images than prompts is valid output; the count mismatch is repaired
// afterwards.
type ImageGenerator interface {
	Generate(ctx context.Context, prompts []project.ImagePrompt, rep progress.Reporter) ([]project.ImageRef, error)
}

// VideoRenderer sequences the per-variant render passes.
type VideoRenderer interface {
	Composite(ctx context.Context, in render.Input, variants []project.Variant, rep progress.Reporter) (render.Result, error)
}

// PublishRequest carries the upload parameters for a finished variant.
type PublishRequest struct {
	Title       string
	Description string
	VideoRef    string
	Variant     project.Variant
	PublishAt   time.Time
}

// Publisher uploads a rendered variant to the video platform.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest, rep progress.Reporter) (project.PublishResult, error)
}

// Notifier receives pipeline lifecycle events. Implementations must not
// block; failures are logged and ignored.
type Notifier interface {
	StageComplete(ctx context.Context, projectID int64, stageName string)
	PublishComplete(ctx context.Context, projectID int64, url string)
	OperationFailed(ctx context.Context, projectID int64, stageName, reason string)
}

// Collaborators bundles the external operation clients the controller
// drives. Every field must be set for the stages the caller intends to run.
type Collaborators struct {
	Transcript TranscriptFetcher
	Script     ScriptWriter
	Speech     SpeechSynthesizer
	Captions   CaptionWriter
	Scenes     ScenePlanner
	Images     ImageGenerator
	Renderer   VideoRenderer
	Publisher  Publisher
}

// Input carries optional, stage-specific parameters for an advance or
// regenerate call. Zero values fall back to stored artifacts and
// configuration defaults.
type Input struct {
	// Text overrides the stage's upstream text input: source material for
	// Script, the narration script for Audio.
	Text string
	// SceneCount overrides the configured image plan size.
	SceneCount int
	// Variants restricts a render run; empty means all variants.
	Variants []project.Variant
	// PublishVariant selects which rendered variant to upload.
	PublishVariant project.Variant
	// Description is the upload description for Publish.
	Description string
	// PublishAt schedules the upload; zero publishes immediately as drafted.
	PublishAt time.Time
	// AutoTriggered marks a render started by the run loop rather than an
	// explicit user call.
	AutoTriggered bool
}
