package testsupport

import (
	"path/filepath"
	"testing"

	"eventpulse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.RawDir = filepath.Join(base, "data", "raw")
	cfg.Paths.ContractsDir = filepath.Join(base, "contracts")
	cfg.Paths.IncomingDir = filepath.Join(base, "incoming")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxAttempts overrides the processing attempt cap.
func WithMaxAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.MaxAttempts = n
	}
}

// WithDriftPolicy overrides the default drift policy.
func WithDriftPolicy(policy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.DriftPolicyDefault = policy
	}
}
