// Package reconcile repairs drift between the image plan and the set of
// produced images. The plan declares N prompts with timings partitioning
// the narration; the image count can change independently (manual removal,
// partial generation failures), and this package is the only authority
// allowed to rewrite the plan when the two disagree.
package reconcile

import (
	"fmt"
	"math"

	"reelsmith/internal/project"
)

// timingTolerance bounds the float comparison when deciding whether plan
// timings already partition the duration. One millisecond is well below
// anything a render timeline can distinguish.
const timingTolerance = 0.001

// Consistent reports whether the plan needs no repair: the prompt count
// matches the image count and the intervals partition [0, totalDuration]
// with no gaps or overlaps.
func Consistent(prompts []project.ImagePrompt, imageCount int, totalDuration float64) bool {
	if len(prompts) != imageCount {
		return false
	}
	if imageCount == 0 {
		return totalDuration <= timingTolerance
	}
	cursor := 0.0
	for i, p := range prompts {
		if p.Index != i {
			return false
		}
		if math.Abs(p.StartSec-cursor) > timingTolerance {
			return false
		}
		if p.EndSec < p.StartSec {
			return false
		}
		cursor = p.EndSec
	}
	return math.Abs(cursor-totalDuration) <= timingTolerance
}

// Plan returns a corrected plan for imageCount produced images spanning
// totalDuration seconds. Timings are re-partitioned uniformly. Prompt and
// scene text survive for indices that exist in the old plan; indices beyond
// it get "Scene k" placeholders, an explicit approximation since the
// original per-scene narrative cannot be reconstructed without re-invoking
// the planner.
func Plan(prompts []project.ImagePrompt, imageCount int, totalDuration float64) ([]project.ImagePrompt, error) {
	if imageCount < 0 {
		return nil, fmt.Errorf("image count %d is negative", imageCount)
	}
	if totalDuration < 0 {
		return nil, fmt.Errorf("total duration %.3f is negative", totalDuration)
	}
	if imageCount == 0 {
		return []project.ImagePrompt{}, nil
	}

	interval := totalDuration / float64(imageCount)
	corrected := make([]project.ImagePrompt, imageCount)
	for i := range corrected {
		entry := project.ImagePrompt{
			Index:    i,
			StartSec: float64(i) * interval,
			EndSec:   float64(i+1) * interval,
		}
		if i < len(prompts) {
			entry.Prompt = prompts[i].Prompt
			entry.SceneDescription = prompts[i].SceneDescription
		} else {
			entry.Prompt = fmt.Sprintf("Scene %d", i+1)
			entry.SceneDescription = fmt.Sprintf("Scene %d", i+1)
		}
		corrected[i] = entry
	}
	// The last interval absorbs accumulated float error so the partition
	// ends exactly at totalDuration.
	corrected[imageCount-1].EndSec = totalDuration
	return corrected, nil
}

// Apply repairs the plan if and only if it is inconsistent with the image
// count. It returns the plan to use and whether a repair happened; a
// consistent plan is returned unchanged.
func Apply(prompts []project.ImagePrompt, imageCount int, totalDuration float64) ([]project.ImagePrompt, bool, error) {
	if Consistent(prompts, imageCount, totalDuration) {
		return prompts, false, nil
	}
	corrected, err := Plan(prompts, imageCount, totalDuration)
	if err != nil {
		return nil, false, err
	}
	return corrected, true, nil
}
