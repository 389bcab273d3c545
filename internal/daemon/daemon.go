// Package daemon coordinates the long-running services: the processing
// engine, the incoming-directory watcher, and the HTTP API. A file lock
// enforces single-instance execution per data directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"eventpulse/internal/api"
	"eventpulse/internal/audit"
	"eventpulse/internal/config"
	"eventpulse/internal/curated"
	"eventpulse/internal/engine"
	"eventpulse/internal/ingest"
	"eventpulse/internal/logging"
	"eventpulse/internal/registry"
	"eventpulse/internal/watcher"
)

// Daemon owns the background services and the instance lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *registry.Store
	loader   *curated.Loader
	recorder *audit.Recorder
	manager  *engine.Manager
	watcher  *watcher.Watcher
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon and its service graph from the config. The caller
// owns Close.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := registry.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	loader, err := curated.Open(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	recorder := audit.NewRecorder(store, logger)
	pipeline := engine.NewPipeline(cfg, store, loader, recorder, logger)
	manager := engine.NewManager(cfg, store, pipeline, recorder, logger)
	submitter := ingest.NewSubmitter(cfg, store, recorder, logger)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		loader:   loader,
		recorder: recorder,
		manager:  manager,
		watcher:  watcher.New(cfg, submitter, logger),
		lockPath: filepath.Join(cfg.Paths.DataDir, "eventpulsed.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and launches the services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another eventpulse daemon is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.manager.Start(runCtx)
	d.watcher.Start(runCtx)
	if err := d.api.start(runCtx); err != nil {
		d.manager.Stop()
		d.watcher.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("registry", d.store.Path()),
	)
	return nil
}

// Stop halts the services and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.watcher.Stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases its database handles.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.loader != nil {
		errs = append(errs, d.loader.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// Service exposes registry operations for the API server.
func (d *Daemon) Service() *api.RegistryService {
	return api.NewRegistryService(d.store, d.loader, d.recorder)
}

// APIAddr returns the bound API address, or empty when the API is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	counts := map[string]int64{}
	if stats, err := d.store.Stats(ctx); err == nil {
		for status, count := range stats.ByStatus {
			counts[string(status)] = count
		}
	}
	return api.DaemonStatus{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		RegistryDBPath:  d.store.Path(),
		WarehouseDBPath: d.loader.Path(),
		LockFilePath:    d.lockPath,
		StatusCounts:    counts,
	}
}
