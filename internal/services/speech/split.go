package speech

import "strings"

// minSegmentChars keeps trailing fragments from becoming their own
// synthesis call; anything shorter is merged into the previous sentence.
const minSegmentChars = 20

// SplitScript divides a narration script into the sentence-sized pieces
// that are synthesized and regenerated independently.
func SplitScript(script string) []string {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}

	var segments []string
	var current strings.Builder
	for _, r := range script {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if piece := strings.TrimSpace(current.String()); piece != "" {
				segments = appendPiece(segments, piece)
			}
			current.Reset()
		}
	}
	if piece := strings.TrimSpace(current.String()); piece != "" {
		segments = appendPiece(segments, piece)
	}
	return segments
}

func appendPiece(segments []string, piece string) []string {
	if len(segments) > 0 && len(piece) < minSegmentChars {
		segments[len(segments)-1] += " " + piece
		return segments
	}
	return append(segments, piece)
}
