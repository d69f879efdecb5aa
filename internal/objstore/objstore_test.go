package objstore

import (
	"context"
	"testing"

	"reelsmith/internal/config"
)

func TestNewRequiresEndpointAndBucket(t *testing.T) {
	if _, err := New(context.Background(), config.Storage{Bucket: "clips"}, nil); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, err := New(context.Background(), config.Storage{Endpoint: "localhost:9000"}, nil); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"videos/1_basic.mp4": "video/mp4",
		"audio/full.mp3":     "audio/mpeg",
		"images/scene_1.png": "image/png",
		"captions/out.srt":   "text/plain",
		"misc/blob":          "application/octet-stream",
	}
	for object, want := range cases {
		if got := contentTypeFor(object); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", object, got, want)
		}
	}
}
