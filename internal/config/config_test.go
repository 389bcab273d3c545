package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventpulse/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		// Default paths are unexpanded; Load is responsible for normalization.
		// Validate on raw defaults should still pass because paths are non-empty.
		return
	} else {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Ingest.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d, want default 5", cfg.Ingest.MaxAttempts)
	}
	if cfg.Paths.RawDir != filepath.Join(cfg.Paths.DataDir, "raw") {
		t.Fatalf("RawDir = %q, want raw under data dir", cfg.Paths.RawDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`contracts_dir = "` + filepath.Join(dir, "contracts") + `"`,
		"[ingest]",
		`allowed_extensions = ["CSV", ".xlsx"]`,
		`drift_policy_default = "FAIL"`,
		"max_attempts = 2",
		"[workflow]",
		"heartbeat_interval = 5",
		"heartbeat_timeout = 60",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if got := cfg.Ingest.AllowedExtensions; len(got) != 2 || got[0] != ".csv" || got[1] != ".xlsx" {
		t.Fatalf("AllowedExtensions = %v", got)
	}
	if cfg.Ingest.DriftPolicyDefault != "fail" {
		t.Fatalf("DriftPolicyDefault = %q, want fail", cfg.Ingest.DriftPolicyDefault)
	}
	if cfg.Ingest.MaxAttempts != 2 {
		t.Fatalf("MaxAttempts = %d, want 2", cfg.Ingest.MaxAttempts)
	}
}

func TestLoadRejectsInvalidDriftPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := "[ingest]\ndrift_policy_default = \"explode\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid drift policy")
	}
}

func TestLoadRejectsHeartbeatTimeoutBelowInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := "[workflow]\nheartbeat_interval = 30\nheartbeat_timeout = 30\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error when heartbeat timeout does not exceed interval")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.RawDir = filepath.Join(dir, "data", "raw")
	cfg.Paths.ContractsDir = filepath.Join(dir, "contracts")
	cfg.Paths.IncomingDir = filepath.Join(dir, "incoming")
	cfg.Paths.ArchiveDir = filepath.Join(dir, "archive")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.RawDir, cfg.Paths.ContractsDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", p)
		}
	}
}
