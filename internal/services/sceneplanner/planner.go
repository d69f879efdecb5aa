// Package sceneplanner authors the timed image-prompt plan for a narration
// script. The model proposes one illustration prompt per scene; timings are
// assigned as a uniform partition of the narration duration.
package sceneplanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/services/llm"
)

const systemPrompt = `You are a visual director planning illustrations for a
narrated video. Given a narration script and a scene count, divide the
narration into that many consecutive scenes. For each scene produce an image
generation prompt (detailed, concrete, no text overlays) and a one-sentence
scene description. Respond with JSON only, in the shape
{"scenes":[{"prompt":"...","description":"..."}]} with exactly the requested
number of scenes in narration order.`

// Completer is the chat completion surface the planner needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Planner produces timed image-prompt plans.
type Planner struct {
	client Completer
	style  string
}

// New builds a planner. style, when non-empty, is appended to every prompt
// as a rendering style directive.
func New(client Completer, style string) *Planner {
	return &Planner{client: client, style: strings.TrimSpace(style)}
}

type scenePayload struct {
	Scenes []struct {
		Prompt      string `json:"prompt"`
		Description string `json:"description"`
	} `json:"scenes"`
}

// PlanScenes asks the model for sceneCount scenes over the script and
// returns a plan whose intervals partition [0, totalDuration]. A model
// replying with too few scenes gets placeholder entries for the remainder;
// excess scenes are dropped.
func (p *Planner) PlanScenes(ctx context.Context, script string, totalDuration float64, sceneCount int, rep progress.Reporter) ([]project.ImagePrompt, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, errors.New("plan scenes: narration script required")
	}
	if sceneCount <= 0 {
		return nil, fmt.Errorf("plan scenes: scene count %d must be positive", sceneCount)
	}
	if totalDuration <= 0 {
		return nil, fmt.Errorf("plan scenes: narration duration %.3f must be positive", totalDuration)
	}

	rep.Progress(10, "planning scenes")
	userPrompt := fmt.Sprintf("Scene count: %d\n\nNarration script:\n%s", sceneCount, script)
	content, err := p.client.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var payload scenePayload
	if err := llm.DecodeJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("plan scenes: parse payload: %w", err)
	}
	if len(payload.Scenes) == 0 {
		return nil, errors.New("plan scenes: model returned no scenes")
	}

	interval := totalDuration / float64(sceneCount)
	plan := make([]project.ImagePrompt, sceneCount)
	for i := range plan {
		entry := project.ImagePrompt{
			Index:    i,
			StartSec: float64(i) * interval,
			EndSec:   float64(i+1) * interval,
		}
		if i < len(payload.Scenes) {
			entry.Prompt = strings.TrimSpace(payload.Scenes[i].Prompt)
			entry.SceneDescription = strings.TrimSpace(payload.Scenes[i].Description)
		}
		if entry.Prompt == "" {
			entry.Prompt = fmt.Sprintf("Scene %d", i+1)
		}
		if entry.SceneDescription == "" {
			entry.SceneDescription = fmt.Sprintf("Scene %d", i+1)
		}
		if p.style != "" {
			entry.Prompt = entry.Prompt + ", " + p.style
		}
		plan[i] = entry
	}
	plan[sceneCount-1].EndSec = totalDuration

	rep.Progress(100, fmt.Sprintf("%d scenes planned", sceneCount))
	return plan, nil
}
