package testsupport

import (
	"path/filepath"
	"testing"

	"slidecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.TTS.APIKey = "test-key"
	cfg.TTS.Region = "eastus"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.RetryBackoffMS = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxActiveJobs overrides the worker slot count on the test config.
func WithMaxActiveJobs(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxActiveJobs = n
	}
}

// WithRetention overrides the retention window on the test config.
func WithRetention(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.RetentionHours = hours
	}
}
