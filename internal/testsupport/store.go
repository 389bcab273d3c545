package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"eventpulse/internal/config"
	"eventpulse/internal/registry"
)

// MustOpenStore opens a registry store for the config, failing the test on error.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("open registry store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// WriteContract writes a contract document for a dataset into the config's
// contracts directory.
func WriteContract(t testing.TB, cfg *config.Config, dataset, doc string) string {
	t.Helper()

	path := filepath.Join(cfg.Paths.ContractsDir, dataset+".yaml")
	if err := os.MkdirAll(cfg.Paths.ContractsDir, 0o755); err != nil {
		t.Fatalf("mkdir contracts dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write contract: %v", err)
	}
	return path
}

// WriteCSV writes a CSV file with the given content and returns its path.
func WriteCSV(t testing.TB, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}
