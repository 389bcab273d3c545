package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"eventpulse/internal/audit"
	"eventpulse/internal/config"
	"eventpulse/internal/curated"
	"eventpulse/internal/engine"
	"eventpulse/internal/ingest"
	"eventpulse/internal/logging"
	"eventpulse/internal/registry"
	"eventpulse/internal/testsupport"
)

const parcelsContract = `
dataset: parcels
primary_key: id
columns:
  id:
    type: string
    required: true
    unique: true
  amount:
    type: number
    min: 0
`

type harness struct {
	cfg       *config.Config
	store     *registry.Store
	loader    *curated.Loader
	recorder  *audit.Recorder
	pipeline  *engine.Pipeline
	submitter *ingest.Submitter
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	loader, err := curated.Open(cfg)
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { _ = loader.Close() })

	recorder := audit.NewRecorder(store, logging.NewNop())
	return &harness{
		cfg:       cfg,
		store:     store,
		loader:    loader,
		recorder:  recorder,
		pipeline:  engine.NewPipeline(cfg, store, loader, recorder, logging.NewNop()),
		submitter: ingest.NewSubmitter(cfg, store, recorder, logging.NewNop()),
	}
}

func (h *harness) submit(t *testing.T, dataset, csv string) *registry.Ingestion {
	t.Helper()
	src := testsupport.WriteCSV(t, t.TempDir(), dataset+".csv", csv)
	record, err := h.submitter.Submit(context.Background(), dataset, "test", src)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return record
}

func (h *harness) claimAndProcess(t *testing.T, id string) *registry.Ingestion {
	t.Helper()
	ctx := context.Background()
	record, claimed, err := h.store.Claim(ctx, id, h.cfg.Ingest.MaxAttempts)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed {
		t.Fatalf("record %s was not claimable", id)
	}
	if err := h.pipeline.Process(ctx, record); err != nil {
		t.Fatalf("process: %v", err)
	}
	final, err := h.store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	return final
}

func TestProcessLoadsValidFile(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteContract(t, h.cfg, "parcels", parcelsContract)
	ctx := context.Background()

	record := h.submit(t, "parcels", "id,amount\na,10\nb,20.5\n")
	final := h.claimAndProcess(t, record.ID)

	if final.Status != registry.StatusLoaded {
		t.Fatalf("status = %s (error %q)", final.Status, final.Error)
	}
	if final.ProcessedAt == nil {
		t.Fatal("processed_at not set")
	}

	count, err := h.loader.RowCount(ctx, "parcels")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 2 {
		t.Fatalf("curated rows = %d, want 2", count)
	}

	report, err := h.store.GetQualityReport(ctx, record.ID)
	if err != nil {
		t.Fatalf("quality report: %v", err)
	}
	if report == nil || !report.OK {
		t.Fatalf("quality report = %+v, want OK", report)
	}

	lineage, err := h.store.GetLineage(ctx, record.ID)
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if lineage == nil {
		t.Fatal("lineage artifact missing")
	}

	latest, err := h.store.LatestSchema(ctx, "parcels")
	if err != nil {
		t.Fatalf("latest schema: %v", err)
	}
	if latest == nil {
		t.Fatal("schema observation missing")
	}
}

func TestProcessFailsQualityOnDuplicateUnique(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteContract(t, h.cfg, "parcels", parcelsContract)
	ctx := context.Background()

	record := h.submit(t, "parcels", "id,amount\na,10\na,20\n")
	final := h.claimAndProcess(t, record.ID)

	if final.Status != registry.StatusFailedQuality {
		t.Fatalf("status = %s", final.Status)
	}
	if !strings.Contains(final.Error, "duplicate values in unique column: id") {
		t.Fatalf("error = %q", final.Error)
	}

	count, err := h.loader.RowCount(ctx, "parcels")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 0 {
		t.Fatalf("curated rows = %d, failed file must not load", count)
	}

	report, err := h.store.GetQualityReport(ctx, record.ID)
	if err != nil {
		t.Fatalf("quality report: %v", err)
	}
	if report == nil || report.OK {
		t.Fatalf("quality report = %+v, want failed", report)
	}
}

func TestProcessFailsDriftOnBreakingChangeUnderFailPolicy(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteContract(t, h.cfg, "readings", `
dataset: readings
drift_policy: fail
columns:
  id:
    type: string
`)

	first := h.submit(t, "readings", "id,extra\na,1\n")
	if got := h.claimAndProcess(t, first.ID); got.Status != registry.StatusLoaded {
		t.Fatalf("first status = %s (error %q)", got.Status, got.Error)
	}

	// Dropping a previously observed column is a breaking change.
	second := h.submit(t, "readings", "id\nb\n")
	final := h.claimAndProcess(t, second.ID)
	if final.Status != registry.StatusFailedDrift {
		t.Fatalf("status = %s (error %q)", final.Status, final.Error)
	}
	if !strings.Contains(final.Error, "breaking schema drift") {
		t.Fatalf("error = %q", final.Error)
	}
}

func TestReplayReloadsWithoutDuplicatingRows(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteContract(t, h.cfg, "parcels", parcelsContract)
	ctx := context.Background()

	record := h.submit(t, "parcels", "id,amount\na,10\nb,20\n")
	if got := h.claimAndProcess(t, record.ID); got.Status != registry.StatusLoaded {
		t.Fatalf("original status = %s", got.Status)
	}

	replay, err := h.store.Replay(ctx, record.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := h.claimAndProcess(t, replay.ID); got.Status != registry.StatusLoaded {
		t.Fatalf("replay status = %s (error %q)", got.Status, got.Error)
	}

	count, err := h.loader.RowCount(ctx, "parcels")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 2 {
		t.Fatalf("curated rows = %d after replay, want 2", count)
	}

	lineage, err := h.store.GetLineage(ctx, replay.ID)
	if err != nil {
		t.Fatalf("replay lineage: %v", err)
	}
	if lineage == nil {
		t.Fatal("replay must get its own lineage artifact")
	}

	original, err := h.store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if original.Status != registry.StatusLoaded {
		t.Fatalf("original status changed to %s", original.Status)
	}
}

func TestProcessMissingContractFailsExceptionAndStaysClaimable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Intentionally no contract written for the dataset.
	record := h.submit(t, "parcels", "id\na\n")
	final := h.claimAndProcess(t, record.ID)

	if final.Status != registry.StatusFailedException {
		t.Fatalf("status = %s", final.Status)
	}
	if final.Error == "" {
		t.Fatal("error message missing")
	}

	// Writing the contract makes the retry succeed.
	testsupport.WriteContract(t, h.cfg, "parcels", parcelsContract)
	retried := h.claimAndProcess(t, record.ID)
	if retried.Status != registry.StatusLoaded {
		t.Fatalf("retry status = %s (error %q)", retried.Status, retried.Error)
	}
	if retried.ProcessingAttempts != 2 {
		t.Fatalf("attempts = %d, want 2", retried.ProcessingAttempts)
	}

	events, err := h.store.AuditEventsForIngestion(ctx, record.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var sawException, sawLoaded bool
	for _, event := range events {
		switch event.EventType {
		case audit.EventFailedException:
			sawException = true
		case audit.EventLoaded:
			sawLoaded = true
		}
	}
	if !sawException || !sawLoaded {
		t.Fatalf("events = %+v, want exception then loaded", events)
	}
}

func TestManagerProcessesSubmittedWork(t *testing.T) {
	h := newHarness(t)
	h.cfg.Workflow.QueuePollInterval = 1
	testsupport.WriteContract(t, h.cfg, "parcels", parcelsContract)
	ctx := context.Background()

	record := h.submit(t, "parcels", "id,amount\na,10\n")

	manager := engine.NewManager(h.cfg, h.store, h.pipeline, h.recorder, logging.NewNop())
	manager.Start(ctx)
	defer manager.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		current, err := h.store.GetByID(ctx, record.ID)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if current.Status == registry.StatusLoaded {
			manager.Stop()
			if manager.Running() {
				t.Fatal("manager still running after Stop")
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("record was not processed before deadline")
}
