// Package watcher polls the incoming directory and routes dropped files into
// the ingestion registry. The dataset is taken from the filename: everything
// before the first "__" separator (or the whole stem when there is none), so
// "parcels__2024-06-01.csv" and "parcels.csv" both route to "parcels".
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"eventpulse/internal/config"
	"eventpulse/internal/ingest"
	"eventpulse/internal/logging"
	"eventpulse/internal/services"
)

// settleWindow is how long a file must be untouched before it is picked up,
// so partially written drops are left alone.
const settleWindow = 2 * time.Second

// rejectedDir is the archive subdirectory for files that failed submission.
const rejectedDir = "_rejected"

// Watcher routes files from the incoming directory to the submitter.
type Watcher struct {
	cfg       *config.Config
	submitter *ingest.Submitter
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Watcher.
func New(cfg *config.Config, submitter *ingest.Submitter, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:       cfg,
		submitter: submitter,
		logger:    logging.NewComponentLogger(logger, "watcher"),
	}
}

// Start launches the polling loop. No-op when already running.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.run(runCtx)
	w.logger.Info("watching incoming directory", logging.String("dir", w.cfg.Paths.IncomingDir))
}

// Stop cancels the loop and waits for the current sweep to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	interval := time.Duration(w.cfg.Workflow.WatchPollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("incoming sweep failed", logging.Error(err))
			}
		}
	}
}

// Sweep submits every settled file currently in the incoming directory.
// Submitted files move to the archive under their dataset; files the
// submitter rejects move to the archive's rejected area so they stop being
// retried every poll.
func (w *Watcher) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Paths.IncomingDir)
	if err != nil {
		return fmt.Errorf("read incoming dir: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < settleWindow {
			continue
		}
		w.handleFile(ctx, entry.Name())
	}
	return nil
}

func (w *Watcher) handleFile(ctx context.Context, name string) {
	srcPath := filepath.Join(w.cfg.Paths.IncomingDir, name)
	dataset := DatasetFromFilename(name)

	record, err := w.submitter.Submit(ctx, dataset, "watcher", srcPath)
	if err != nil {
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrNotFound) {
			w.logger.Warn("rejected incoming file",
				logging.String("file", name),
				logging.Error(err),
			)
			w.archive(name, filepath.Join(w.cfg.Paths.ArchiveDir, rejectedDir, name))
			return
		}
		w.logger.Error("submit incoming file failed",
			logging.String("file", name),
			logging.Error(err),
		)
		return
	}

	w.logger.Info("incoming file submitted",
		logging.String("file", name),
		logging.String(logging.FieldDataset, record.Dataset),
		logging.String(logging.FieldIngestionID, record.ID),
	)
	w.archive(name, filepath.Join(w.cfg.Paths.ArchiveDir, record.Dataset, name))
}

// archive moves a handled incoming file out of the watch directory. A name
// collision gets a timestamp suffix rather than overwriting the earlier drop.
func (w *Watcher) archive(name, dst string) {
	src := filepath.Join(w.cfg.Paths.IncomingDir, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		w.logger.Warn("create archive directory failed", logging.Error(err))
		return
	}
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		dst = strings.TrimSuffix(dst, ext) + "." + time.Now().UTC().Format("20060102T150405") + ext
	}
	if err := os.Rename(src, dst); err != nil {
		w.logger.Warn("archive incoming file failed",
			logging.String("file", name),
			logging.Error(err),
		)
	}
}

// DatasetFromFilename derives the target dataset from an incoming filename.
func DatasetFromFilename(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if idx := strings.Index(stem, "__"); idx >= 0 {
		stem = stem[:idx]
	}
	return stem
}
