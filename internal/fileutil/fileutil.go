// Package fileutil provides the copy helpers used when landing raw artifacts.
// Copies are atomic: data streams into a temp file that is renamed into place
// only after it is fully written, so readers never observe a partial file.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CopyFile atomically copies src to dst with 0o644 permissions.
func CopyFile(src, dst string) error {
	_, err := copyHashed(src, dst)
	return err
}

// CopyFileVerified atomically copies src to dst and verifies the written
// bytes hash to wantSHA256. On mismatch nothing is left at dst.
func CopyFileVerified(src, dst, wantSHA256 string) error {
	sum, err := copyHashed(src, dst)
	if err != nil {
		return err
	}
	if sum != wantSHA256 {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: got %s, want %s", sum, wantSHA256)
	}
	return nil
}

// copyHashed streams src into dst via a temp file, returning the sha256 of
// the bytes written.
func copyHashed(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
