package captions

import (
	"fmt"
	"strings"

	"reelsmith/internal/project"
)

type timedLine struct {
	Start float64
	End   float64
	Text  string
}

// interpolateTimings fills in entries the aligner could not time. A missing
// start continues from the previous end; a missing end borrows the next
// start or extends one second.
func interpolateTimings(aligned []alignedSegment) []timedLine {
	lines := make([]timedLine, 0, len(aligned))
	cursor := 0.0
	for i, seg := range aligned {
		line := timedLine{Text: strings.TrimSpace(seg.Text)}
		if seg.Start != nil {
			line.Start = *seg.Start
		} else {
			line.Start = cursor
		}
		switch {
		case seg.End != nil:
			line.End = *seg.End
		case i+1 < len(aligned) && aligned[i+1].Start != nil:
			line.End = *aligned[i+1].Start
		default:
			line.End = line.Start + 1
		}
		if line.End < line.Start {
			line.End = line.Start
		}
		cursor = line.End
		lines = append(lines, line)
	}
	return lines
}

// fallbackSRT times captions from the narration segments' own durations
// when alignment output is unavailable.
func fallbackSRT(segments []project.AudioSegment) string {
	lines := make([]timedLine, 0, len(segments))
	cursor := 0.0
	for _, seg := range segments {
		lines = append(lines, timedLine{
			Start: cursor,
			End:   cursor + seg.DurationSec,
			Text:  strings.TrimSpace(seg.Text),
		})
		cursor += seg.DurationSec
	}
	return buildSRT(lines)
}

func buildSRT(lines []timedLine) string {
	var out strings.Builder
	for i, line := range lines {
		if line.Text == "" {
			continue
		}
		fmt.Fprintf(&out, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(line.Start), srtTimestamp(line.End), line.Text)
	}
	return strings.TrimRight(out.String(), "\n") + "\n"
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
