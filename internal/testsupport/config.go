package testsupport

import (
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSpeechBinary overrides the TTS binary on the test config.
func WithSpeechBinary(binary string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Speech.Binary = binary
	}
}

// WithRenderBinary overrides the renderer binary on the test config.
func WithRenderBinary(binary string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Render.Binary = binary
	}
}
