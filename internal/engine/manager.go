package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventpulse/internal/audit"
	"eventpulse/internal/config"
	"eventpulse/internal/logging"
	"eventpulse/internal/registry"
)

// Manager owns the worker loop and the stale-claim reclaimer. It polls the
// registry for claimable records, claims them one at a time, keeps a
// heartbeat alive while the pipeline runs, and periodically returns orphaned
// PROCESSING records to the claimable pool.
type Manager struct {
	cfg      *config.Config
	store    *registry.Store
	pipeline *Pipeline
	recorder *audit.Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager builds a Manager around an existing pipeline.
func NewManager(cfg *config.Config, store *registry.Store, pipeline *Pipeline, recorder *audit.Recorder, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
}

// Start launches the worker and reclaimer loops. It is a no-op when the
// manager is already running.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go m.runWorker(runCtx)
	go m.runReclaimer(runCtx)
	m.logger.Info("engine started",
		logging.Int("poll_interval_s", m.cfg.Workflow.QueuePollInterval),
		logging.Int("heartbeat_timeout_s", m.cfg.Workflow.HeartbeatTimeout),
	)
}

// Stop cancels the loops and waits for in-flight work to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.running = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("engine stopped")
}

// Running reports whether the loops are active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()

	pollInterval := secondsDuration(m.cfg.Workflow.QueuePollInterval, 2*time.Second)
	retryInterval := secondsDuration(m.cfg.Workflow.ErrorRetryInterval, 5*time.Second)

	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := m.processNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("worker iteration failed", logging.Error(err))
			if !sleepCtx(ctx, retryInterval) {
				return
			}
			continue
		}
		if processed {
			continue
		}
		if !sleepCtx(ctx, pollInterval) {
			return
		}
	}
}

// processNext claims and processes at most one record. It reports whether any
// work was attempted so the caller can skip the poll wait while the registry
// has a backlog.
func (m *Manager) processNext(ctx context.Context) (bool, error) {
	candidate, err := m.store.NextClaimable(ctx)
	if err != nil {
		return false, err
	}
	if candidate == nil {
		return false, nil
	}

	record, claimed, err := m.store.Claim(ctx, candidate.ID, m.cfg.Ingest.MaxAttempts)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Lost the race, or the candidate hit the attempt cap. Either way
		// there may be more claimable work right behind it.
		return true, nil
	}

	m.recorder.Event(ctx, audit.EventClaimed, "worker", record.Dataset, record.ID,
		fmt.Sprintf("attempt %d", record.ProcessingAttempts))

	stopHeartbeat := m.startHeartbeat(ctx, record.ID)
	err = m.pipeline.Process(ctx, record)
	stopHeartbeat()
	if err != nil {
		return true, err
	}
	return true, nil
}

// startHeartbeat refreshes the claim's heartbeat until the returned stop
// function is called. Heartbeat failures are logged and tolerated; a few
// missed beats only matter if they span the reclaim timeout.
func (m *Manager) startHeartbeat(ctx context.Context, id string) func() {
	interval := secondsDuration(m.cfg.Workflow.HeartbeatInterval, 30*time.Second)
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := m.store.Heartbeat(hbCtx, id); err != nil && hbCtx.Err() == nil {
					m.logger.Warn("heartbeat update failed",
						logging.String(logging.FieldIngestionID, id),
						logging.Error(err),
					)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()

	interval := secondsDuration(m.cfg.Workflow.ReclaimInterval, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reclaimOnce(ctx)
		}
	}
}

func (m *Manager) reclaimOnce(ctx context.Context) {
	timeout := secondsDuration(m.cfg.Workflow.HeartbeatTimeout, 15*time.Minute)
	cutoff := time.Now().Add(-timeout)

	count, err := m.store.ReclaimStale(ctx, cutoff, m.cfg.Workflow.ReclaimMaxPerRun)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("reclaim sweep failed", logging.Error(err))
		}
		return
	}
	if count > 0 {
		m.recorder.Event(ctx, audit.EventReclaimed, "reclaimer", "", "",
			fmt.Sprintf("returned %d stale ingestions to RECEIVED", count))
		m.logger.Info("reclaimed stale ingestions", logging.Int64("count", count))
	}
}

func secondsDuration(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// sleepCtx waits for the duration or context cancellation, reporting false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
