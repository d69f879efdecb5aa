package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("  the source text  "))
	}))
	defer server.Close()

	client := NewClient(Config{})
	text, err := client.Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if text != "the source text" {
		t.Fatalf("text = %q", text)
	}
}

func TestFetchJSONTranscriptField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transcript":"spoken words"}`))
	}))
	defer server.Close()

	client := NewClient(Config{})
	text, err := client.Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if text != "spoken words" {
		t.Fatalf("text = %q", text)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewClient(Config{RetryAttempts: 3}, WithSleeper(func(time.Duration) {}))
	text, err := client.Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if text != "recovered" {
		t.Fatalf("text = %q", text)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("server saw %d calls", calls)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{RetryAttempts: 3}, WithSleeper(func(time.Duration) {}))
	if _, err := client.Fetch(context.Background(), server.URL, nil); err == nil {
		t.Fatal("expected error for 404")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("server saw %d calls, want 1", calls)
	}
}

func TestFetchRequiresURL(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Fetch(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}
