// Package ingest handles submissions: it gates incoming files on extension
// and size, copies them into the immutable raw landing zone, and creates the
// RECEIVED registry record that workers later claim.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eventpulse/internal/audit"
	"eventpulse/internal/config"
	"eventpulse/internal/fileutil"
	"eventpulse/internal/logging"
	"eventpulse/internal/naming"
	"eventpulse/internal/registry"
	"eventpulse/internal/services"
	"eventpulse/internal/storage"
)

// Submitter accepts new files for ingestion.
type Submitter struct {
	cfg      *config.Config
	store    *registry.Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewSubmitter builds a Submitter.
func NewSubmitter(cfg *config.Config, store *registry.Store, recorder *audit.Recorder, logger *slog.Logger) *Submitter {
	return &Submitter{
		cfg:      cfg,
		store:    store,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Submit validates and lands srcPath for the dataset, then creates a RECEIVED
// record. source describes the submitter (e.g. "cli", "watcher", an upstream
// system name) and lands in the record for provenance.
func (s *Submitter) Submit(ctx context.Context, dataset, source, srcPath string) (*registry.Ingestion, error) {
	normalized, err := naming.NormalizeDataset(dataset)
	if err != nil {
		return nil, err
	}

	sha, rawPath, ext, err := s.storeRaw(normalized, srcPath)
	if err != nil {
		return nil, err
	}

	record, err := s.store.NewIngestion(ctx, registry.NewIngestionParams{
		Dataset:  normalized,
		Source:   source,
		Filename: filepath.Base(srcPath),
		FileExt:  ext,
		SHA256:   sha,
		RawPath:  rawPath,
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Event(ctx, audit.EventReceived, source, normalized, record.ID, filepath.Base(srcPath))
	s.logger.Info("ingestion received",
		logging.String(logging.FieldDataset, normalized),
		logging.String(logging.FieldIngestionID, record.ID),
		logging.String("sha256", sha),
	)
	return record, nil
}

// storeRaw copies a file into the immutable raw landing zone at
// <raw_dir>/<dataset>/<yyyy-mm-dd>/<sha256><ext>. An existing file with the
// same hash is never overwritten.
func (s *Submitter) storeRaw(dataset, srcPath string) (sha, rawPath, ext string, err error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", "", "", services.Wrap(services.ErrNotFound, "ingest", "store raw", srcPath, err)
	}

	ext = strings.ToLower(filepath.Ext(srcPath))
	if !s.extensionAllowed(ext) {
		return "", "", "", services.Wrap(services.ErrValidation, "ingest", "store raw",
			fmt.Sprintf("file extension %q not allowed (allowed: %s)", ext, strings.Join(s.cfg.Ingest.AllowedExtensions, ", ")), nil)
	}
	if info.Size() > s.cfg.MaxFileBytes() {
		return "", "", "", services.Wrap(services.ErrValidation, "ingest", "store raw",
			fmt.Sprintf("file too large (> %d MB)", s.cfg.Ingest.MaxFileMB), nil)
	}

	sha, err = storage.HashFile(srcPath)
	if err != nil {
		return "", "", "", services.Wrap(services.ErrTransient, "ingest", "store raw", "hash file", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	rawDir := filepath.Join(s.cfg.Paths.RawDir, dataset, day)
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return "", "", "", services.Wrap(services.ErrTransient, "ingest", "store raw", "create landing directory", err)
	}

	rawPath = filepath.Join(rawDir, sha+ext)
	if _, statErr := os.Stat(rawPath); os.IsNotExist(statErr) {
		if err := fileutil.CopyFileVerified(srcPath, rawPath, sha); err != nil {
			return "", "", "", services.Wrap(services.ErrTransient, "ingest", "store raw", "copy into landing zone", err)
		}
	}
	return sha, rawPath, ext, nil
}

func (s *Submitter) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.Ingest.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

