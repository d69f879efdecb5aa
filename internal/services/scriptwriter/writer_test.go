package scriptwriter

import (
	"context"
	"errors"
	"testing"

	"reelsmith/internal/progress"
)

type fakeCompleter struct {
	gotSystem string
	gotUser   string
	reply     string
	err       error
}

func (f *fakeCompleter) CompleteText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.gotSystem = systemPrompt
	f.gotUser = userPrompt
	return f.reply, f.err
}

func TestWriteScript(t *testing.T) {
	completer := &fakeCompleter{reply: "  An engaging script.  "}
	writer := New(completer)

	script, err := writer.WriteScript(context.Background(), "raw source", nil)
	if err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}
	if script != "An engaging script." {
		t.Fatalf("script = %q", script)
	}
	if completer.gotUser != "raw source" {
		t.Fatalf("user prompt = %q", completer.gotUser)
	}
}

func TestWriteScriptRequiresSource(t *testing.T) {
	writer := New(&fakeCompleter{})
	if _, err := writer.WriteScript(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestWriteScriptPropagatesError(t *testing.T) {
	writer := New(&fakeCompleter{err: errors.New("quota exhausted")})
	if _, err := writer.WriteScript(context.Background(), "source", progress.NopReporter{}); err == nil {
		t.Fatal("expected completion error")
	}
}

func TestWriteScriptRejectsEmptyReply(t *testing.T) {
	writer := New(&fakeCompleter{reply: "   "})
	if _, err := writer.WriteScript(context.Background(), "source", nil); err == nil {
		t.Fatal("expected error for empty model reply")
	}
}
