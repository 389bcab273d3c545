package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"eventpulse/internal/services"
	"eventpulse/internal/storage"
)

func TestFetchVerifiesHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("id\n1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sha, err := storage.HashFile(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	fetcher := storage.LocalFetcher{}
	resolved, err := fetcher.Fetch(storage.RawRef{Path: path, SHA256: sha})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved = %q", resolved)
	}
}

func TestFetchRejectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("id\n1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := storage.LocalFetcher{}.Fetch(storage.RawRef{Path: path, SHA256: "not-the-hash"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchMissingFile(t *testing.T) {
	_, err := storage.LocalFetcher{}.Fetch(storage.RawRef{Path: filepath.Join(t.TempDir(), "absent.csv")})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHashFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	for _, path := range []string{a, b} {
		if err := os.WriteFile(path, []byte("same content"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	hashA, _ := storage.HashFile(a)
	hashB, _ := storage.HashFile(b)
	if hashA != hashB || hashA == "" {
		t.Fatalf("hashes differ: %q vs %q", hashA, hashB)
	}
}
