package stage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage identifies one ordered step of the production pipeline.
type Stage string

const (
	Script    Stage = "script"
	Audio     Stage = "audio"
	Captions  Stage = "captions"
	ImagePlan Stage = "image_plan"
	Images    Stage = "images"
	Render    Stage = "render"
	Publish   Stage = "publish"
)

var ordered = []Stage{Script, Audio, Captions, ImagePlan, Images, Render, Publish}

var indexByStage = func() map[Stage]int {
	m := make(map[Stage]int, len(ordered))
	for i, s := range ordered {
		m[s] = i
	}
	return m
}()

var titleCaser = cases.Title(language.English)

// All returns the ordered list of pipeline stages.
func All() []Stage {
	cp := make([]Stage, len(ordered))
	copy(cp, ordered)
	return cp
}

// Parse converts a string into a known Stage.
func Parse(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "imageplan", "plan":
		normalized = ImagePlan
	}
	_, ok := indexByStage[normalized]
	return normalized, ok
}

// Index returns the zero-based position of the stage in pipeline order,
// or -1 for an unknown stage.
func (s Stage) Index() int {
	idx, ok := indexByStage[s]
	if !ok {
		return -1
	}
	return idx
}

// Known reports whether the stage is one of the pipeline stages.
func (s Stage) Known() bool {
	_, ok := indexByStage[s]
	return ok
}

// Before returns every stage strictly preceding s in pipeline order.
func Before(s Stage) []Stage {
	idx := s.Index()
	if idx <= 0 {
		return nil
	}
	cp := make([]Stage, idx)
	copy(cp, ordered[:idx])
	return cp
}

// Next returns the stage following s, or false when s is the last stage.
func (s Stage) Next() (Stage, bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(ordered) {
		return "", false
	}
	return ordered[idx+1], true
}

// Label returns the user-facing name of the stage.
func (s Stage) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}
