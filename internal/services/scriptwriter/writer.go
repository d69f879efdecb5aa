// Package scriptwriter rewrites source material into a narration script
// suitable for voice synthesis.
package scriptwriter

import (
	"context"
	"errors"
	"strings"

	"reelsmith/internal/progress"
)

const systemPrompt = `You are a professional narration writer for short-form
video. Rewrite the provided source material into an engaging spoken-word
script. Write plain prose with no headings, no stage directions, no markdown,
and no scene numbers. Keep sentences short enough to breathe between. Open
with a hook and close with a single memorable line.`

// Completer is the chat completion surface the writer needs.
type Completer interface {
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Writer produces narration scripts through a chat completion model.
type Writer struct {
	client Completer
}

// New builds a writer on top of the given completion client.
func New(client Completer) *Writer {
	return &Writer{client: client}
}

// WriteScript rewrites sourceText into a narration script.
func (w *Writer) WriteScript(ctx context.Context, sourceText string, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	sourceText = strings.TrimSpace(sourceText)
	if sourceText == "" {
		return "", errors.New("write script: source text required")
	}

	rep.Progress(10, "rewriting source into narration")
	script, err := w.client.CompleteText(ctx, systemPrompt, sourceText)
	if err != nil {
		return "", err
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return "", errors.New("write script: model returned an empty script")
	}
	rep.Progress(100, "narration script ready")
	return script, nil
}
