package project

import (
	"fmt"
	"strings"
	"time"

	"reelsmith/internal/approval"
	"reelsmith/internal/stage"
)

// Status represents the lifecycle of a project.
type Status string

const (
	StatusNew        Status = "new"
	StatusGenerating Status = "generating"
	StatusFailed     Status = "failed"
	StatusPublished  Status = "published"
	StatusAbandoned  Status = "abandoned"
)

var statusSet = map[Status]struct{}{
	StatusNew:        {},
	StatusGenerating: {},
	StatusFailed:     {},
	StatusPublished:  {},
	StatusAbandoned:  {},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Variant tags one of the sibling render outputs. Variants are independent:
// any subset may exist at once and producing one never discards another.
type Variant string

const (
	VariantBasic   Variant = "basic"
	VariantEffectA Variant = "effect_set_a"
	VariantEffectB Variant = "effect_set_b"
)

// Variants returns the known variant tags in presentation order.
func Variants() []Variant {
	return []Variant{VariantBasic, VariantEffectA, VariantEffectB}
}

// ParseVariant converts a string into a known Variant.
func ParseVariant(value string) (Variant, bool) {
	switch Variant(strings.ToLower(strings.TrimSpace(value))) {
	case VariantBasic, "b":
		return VariantBasic, true
	case VariantEffectA, "a", "effecta", "effect_a":
		return VariantEffectA, true
	case VariantEffectB, "effectb", "effect_b":
		return VariantEffectB, true
	default:
		return "", false
	}
}

// AudioSegment is the unit of independent narration regeneration. Index is
// stable identity, not an array position.
type AudioSegment struct {
	Index       int     `json:"index"`
	Text        string  `json:"text"`
	AudioRef    string  `json:"audio_ref"`
	DurationSec float64 `json:"duration_sec"`
	SizeBytes   int64   `json:"size_bytes"`
}

// ImagePrompt is one timed entry of the illustration plan. The set of
// prompt timings must partition [0, total audio duration] and the prompt
// count must equal the produced image count; the reconcile package is the
// only authority permitted to rewrite a drifted plan.
type ImagePrompt struct {
	Index            int     `json:"index"`
	Prompt           string  `json:"prompt"`
	SceneDescription string  `json:"scene_description"`
	StartSec         float64 `json:"start_sec"`
	EndSec           float64 `json:"end_sec"`
}

// ImageRef is one produced illustration image.
type ImageRef struct {
	Index int    `json:"index"`
	Ref   string `json:"ref"`
}

// PublishResult records the platform upload outcome.
type PublishResult struct {
	VideoID     string    `json:"video_id"`
	URL         string    `json:"url"`
	ScheduledAt string    `json:"scheduled_at,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Project is the unit of pipeline execution, persisted in SQLite. One
// project is never shared across concurrent stage executions.
type Project struct {
	ID           int64
	Title        string
	SourceURL    string
	Status       Status
	CurrentStage stage.Stage

	RawTranscript string
	ScriptText    string
	AudioSegments []AudioSegment
	AudioRef      string
	CaptionsText  string
	ImagePlan     []ImagePrompt
	Images        []ImageRef

	BasicVideoRef   string
	EffectAVideoRef string
	EffectBVideoRef string

	PublishedID  string
	PublishedURL string

	Approvals           approval.Set
	RenderAutoTriggered bool

	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalAudioDuration is the aggregate narration duration, always recomputed
// from the full segment set.
func (p *Project) TotalAudioDuration() float64 {
	var total float64
	for _, seg := range p.AudioSegments {
		total += seg.DurationSec
	}
	return total
}

// HasArtifact reports whether the stage's output currently exists.
func (p *Project) HasArtifact(st stage.Stage) bool {
	switch st {
	case stage.Script:
		return strings.TrimSpace(p.ScriptText) != ""
	case stage.Audio:
		return len(p.AudioSegments) > 0
	case stage.Captions:
		return strings.TrimSpace(p.CaptionsText) != ""
	case stage.ImagePlan:
		return len(p.ImagePlan) > 0
	case stage.Images:
		return len(p.Images) > 0
	case stage.Render:
		return p.BasicVideoRef != "" || p.EffectAVideoRef != "" || p.EffectBVideoRef != ""
	case stage.Publish:
		return p.PublishedID != ""
	default:
		return false
	}
}

// MissingBefore returns the first stage strictly before st whose artifact
// is absent.
func (p *Project) MissingBefore(st stage.Stage) (stage.Stage, bool) {
	for _, prior := range stage.Before(st) {
		if !p.HasArtifact(prior) {
			return prior, true
		}
	}
	return "", false
}

// ReplaceSegment swaps in a regenerated audio segment by stable index,
// leaving every other segment untouched.
func (p *Project) ReplaceSegment(seg AudioSegment) error {
	for i := range p.AudioSegments {
		if p.AudioSegments[i].Index == seg.Index {
			p.AudioSegments[i] = seg
			return nil
		}
	}
	return fmt.Errorf("audio segment %d not found", seg.Index)
}

// VariantRef returns the stored reference for a render variant.
func (p *Project) VariantRef(v Variant) string {
	switch v {
	case VariantBasic:
		return p.BasicVideoRef
	case VariantEffectA:
		return p.EffectAVideoRef
	case VariantEffectB:
		return p.EffectBVideoRef
	default:
		return ""
	}
}

// SetVariantRef stores a render variant's reference without touching the
// other variants' slots.
func (p *Project) SetVariantRef(v Variant, ref string) {
	switch v {
	case VariantBasic:
		p.BasicVideoRef = ref
	case VariantEffectA:
		p.EffectAVideoRef = ref
	case VariantEffectB:
		p.EffectBVideoRef = ref
	}
}

// SetProgress updates all three progress fields atomically.
func (p *Project) SetProgress(stageLabel, message string, percent float64) {
	p.ProgressStage = stageLabel
	p.ProgressMessage = message
	p.ProgressPercent = percent
}

// SetFailed marks the project as failed with the given error message.
func (p *Project) SetFailed(message string) {
	p.Status = StatusFailed
	p.ErrorMessage = message
	p.ProgressPercent = 0
	p.ProgressMessage = message
	p.ProgressStage = "Failed"
}

// InitProgress resets progress fields at the start of a stage run.
func (p *Project) InitProgress(stageLabel, message string) {
	p.Status = StatusGenerating
	p.ProgressStage = stageLabel
	p.ProgressMessage = message
	p.ProgressPercent = 0
	p.ErrorMessage = ""
}
