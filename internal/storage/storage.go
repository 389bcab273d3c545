// Package storage abstracts access to raw artifacts. The pipeline treats a
// raw reference as opaque and re-fetchable; it never mutates the artifact.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"eventpulse/internal/services"
)

// RawRef identifies one immutable raw artifact.
type RawRef struct {
	Path         string
	SHA256       string
	VersionToken string
}

// Fetcher resolves a raw reference to a readable local path.
type Fetcher interface {
	// Fetch returns a local filesystem path for the artifact, verifying the
	// content hash when the reference carries one.
	Fetch(ref RawRef) (string, error)
}

// LocalFetcher serves artifacts already on the local filesystem (the raw
// landing zone).
type LocalFetcher struct{}

// Fetch verifies the artifact exists and, when a hash is present, that the
// content still matches it. Raw artifacts are immutable; a mismatch means
// corruption or tampering and fails the ingestion.
func (LocalFetcher) Fetch(ref RawRef) (string, error) {
	info, err := os.Stat(ref.Path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "fetch", fmt.Sprintf("raw artifact %s", ref.Path), err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "storage", "fetch", fmt.Sprintf("raw artifact %s is a directory", ref.Path), nil)
	}
	if ref.SHA256 != "" {
		actual, err := HashFile(ref.Path)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "storage", "fetch", "hash raw artifact", err)
		}
		if actual != ref.SHA256 {
			return "", services.Wrap(services.ErrValidation, "storage", "fetch",
				fmt.Sprintf("raw artifact %s content hash mismatch", ref.Path), nil)
		}
	}
	return ref.Path, nil
}

// HashFile returns the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
