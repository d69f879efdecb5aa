package imagegen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/project"
)

var imageBody = strings.Repeat("x", 200)

func plan(prompts ...string) []project.ImagePrompt {
	out := make([]project.ImagePrompt, len(prompts))
	for i, p := range prompts {
		out[i] = project.ImagePrompt{Index: i, Prompt: p}
	}
	return out
}

func TestGenerateFetchesEveryScene(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !strings.Contains(r.URL.RawQuery, "width=1920") {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(imageBody))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, WorkDir: t.TempDir()}, nil,
		WithSleeper(func(time.Duration) {}))
	refs, err := client.Generate(context.Background(), plan("a storm", "a harbor"), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs", len(refs))
	}
	if refs[0].Index != 0 || refs[1].Index != 1 {
		t.Fatalf("refs not densely indexed: %#v", refs)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("server saw %d calls", calls)
	}
}

func TestGenerateSkipsFailingScenes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(imageBody))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, WorkDir: t.TempDir()}, nil,
		WithSleeper(func(time.Duration) {}))
	refs, err := client.Generate(context.Background(), plan("fine one", "broken one", "fine two"), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2 survivors", len(refs))
	}
	// Survivors re-index densely so the plan can be reconciled against
	// the produced count.
	if refs[0].Index != 0 || refs[1].Index != 1 {
		t.Fatalf("refs = %#v", refs)
	}
}

func TestGenerateAllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, WorkDir: t.TempDir()}, nil,
		WithSleeper(func(time.Duration) {}))
	if _, err := client.Generate(context.Background(), plan("p"), nil); err == nil {
		t.Fatal("expected error when every scene fails")
	}
}

func TestGenerateRejectsTinyResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("err"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, WorkDir: t.TempDir()}, nil,
		WithSleeper(func(time.Duration) {}))
	if _, err := client.Generate(context.Background(), plan("p"), nil); err == nil {
		t.Fatal("expected error for error-page sized response")
	}
}

func TestGenerateEmptyPlan(t *testing.T) {
	client := NewClient(Config{WorkDir: t.TempDir()}, nil)
	if _, err := client.Generate(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty plan")
	}
}
