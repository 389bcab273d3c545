package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"eventpulse/internal/audit"
	"eventpulse/internal/config"
	"eventpulse/internal/contract"
	"eventpulse/internal/curated"
	"eventpulse/internal/drift"
	"eventpulse/internal/logging"
	"eventpulse/internal/quality"
	"eventpulse/internal/registry"
	"eventpulse/internal/schema"
	"eventpulse/internal/services"
	"eventpulse/internal/storage"
	"eventpulse/internal/tabular"
)

// Pipeline runs one claimed ingestion from PROCESSING to a terminal status.
// Every exit path finalizes the record: validation failures become
// FAILED_QUALITY or FAILED_DRIFT, anything unexpected becomes
// FAILED_EXCEPTION (claimable again up to the attempt cap), success becomes
// LOADED. The quality report and lineage artifact are written on every path
// where validation ran.
type Pipeline struct {
	cfg      *config.Config
	store    *registry.Store
	loader   *curated.Loader
	fetcher  storage.Fetcher
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewPipeline builds a Pipeline using the local raw landing zone.
func NewPipeline(cfg *config.Config, store *registry.Store, loader *curated.Loader, recorder *audit.Recorder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		loader:   loader,
		fetcher:  storage.LocalFetcher{},
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Process drives a claimed record to a terminal state. The returned error is
// non-nil only for registry failures that prevented finalizing the record;
// handled validation and exception outcomes return nil.
func (p *Pipeline) Process(ctx context.Context, record *registry.Ingestion) (err error) {
	ctx = services.WithIngestionID(ctx, record.ID)
	ctx = services.WithDataset(ctx, record.Dataset)
	logger := logging.WithContext(ctx, p.logger)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("panic while processing ingestion", logging.Any("panic", recovered))
			err = p.failException(ctx, logger, record, fmt.Errorf("panic: %v", recovered))
		}
	}()

	loaded, err := contract.Load(p.cfg.Paths.ContractsDir, record.Dataset)
	if err != nil {
		return p.failException(ctx, logger, record, err)
	}
	c := loaded.Contract

	rawPath, err := p.fetcher.Fetch(storage.RawRef{
		Path:         record.RawPath,
		SHA256:       record.SHA256,
		VersionToken: record.VersionToken,
	})
	if err != nil {
		return p.failException(ctx, logger, record, err)
	}

	table, err := tabular.Read(rawPath)
	if err != nil {
		return p.failException(ctx, logger, record, err)
	}

	observed := schema.Infer(table)
	observedHash := schema.Hash(observed)
	logger = logger.With(logging.String(logging.FieldSchemaHash, observedHash))

	// Drift baseline is the latest stored observation, read before this
	// file's schema is recorded.
	var previous *schema.Schema
	if latest, err := p.store.LatestSchema(ctx, record.Dataset); err != nil {
		return p.failException(ctx, logger, record, err)
	} else if latest != nil {
		decoded, err := schema.FromJSON(latest.SchemaJSON)
		if err != nil {
			return p.failException(ctx, logger, record, fmt.Errorf("decode stored schema: %w", err))
		}
		previous = &decoded
	}
	driftReport := drift.Detect(previous, observed)

	observedJSON, err := observed.JSON()
	if err != nil {
		return p.failException(ctx, logger, record, err)
	}
	if err := p.store.UpsertSchema(ctx, record.Dataset, observedHash, observedJSON); err != nil {
		return p.failException(ctx, logger, record, err)
	}

	policy := c.DriftPolicyOrDefault(p.cfg.Ingest.DriftPolicyDefault)
	report := quality.Validate(table, c, driftReport, policy)

	reportJSON, err := report.JSON()
	if err != nil {
		return p.failException(ctx, logger, record, err)
	}
	if err := p.store.SaveQualityReport(ctx, record.ID, report.OK, reportJSON); err != nil {
		return p.failException(ctx, logger, record, err)
	}

	artifact := audit.Artifact{
		IngestionID:    record.ID,
		Dataset:        record.Dataset,
		RawPath:        record.RawPath,
		SHA256:         record.SHA256,
		VersionToken:   record.VersionToken,
		ContractSHA256: loaded.SHA256,
		SchemaHash:     observedHash,
		Drift:          driftReport,
		Quality: &audit.QualitySummary{
			OK:           report.OK,
			ErrorCount:   len(report.Errors),
			WarningCount: len(report.Warnings),
			RowCount:     report.Metrics.RowCount,
		},
	}

	if !report.OK {
		status := registry.StatusFailedQuality
		event := audit.EventFailedQuality
		if policy == contract.DriftFail && driftReport.Breaking {
			status = registry.StatusFailedDrift
			event = audit.EventFailedDrift
		}
		message := strings.Join(report.Errors, "; ")
		if err := p.store.MarkFailed(ctx, record.ID, status, message); err != nil {
			return err
		}
		if err := p.recorder.WriteLineage(ctx, artifact); err != nil {
			logger.Warn("lineage write failed on validation failure", logging.Error(err))
		}
		p.recorder.Event(ctx, event, "worker", record.Dataset, record.ID, message)
		logger.Info("ingestion failed validation",
			logging.String(logging.FieldStatus, string(status)),
			logging.Int("errors", len(report.Errors)),
		)
		return nil
	}

	if c.PrimaryKey == "" {
		logger.Warn("no primary key declared; curated load is append-only and replays may duplicate rows",
			logging.String(logging.FieldDataset, record.Dataset))
	}

	result, err := p.loader.Load(ctx, c, table, record.ID, record.SHA256)
	if err != nil {
		return p.failException(ctx, logger, record, err)
	}
	artifact.Load = &audit.LoadSummary{
		Table:        result.Table,
		RowsAffected: result.RowsAffected,
		Upsert:       result.Upsert,
	}

	if err := p.store.MarkLoaded(ctx, record.ID); err != nil {
		return err
	}
	if err := p.recorder.WriteLineage(ctx, artifact); err != nil {
		logger.Warn("lineage write failed after load", logging.Error(err))
	}
	p.recorder.Event(ctx, audit.EventLoaded, "worker", record.Dataset, record.ID,
		fmt.Sprintf("%d rows into %s", result.RowsAffected, result.Table))
	logger.Info("ingestion loaded",
		logging.String("table", result.Table),
		logging.Int64("rows", result.RowsAffected),
	)
	return nil
}

// failException finalizes a record as FAILED_EXCEPTION. The record stays
// claimable up to the attempt cap.
func (p *Pipeline) failException(ctx context.Context, logger *slog.Logger, record *registry.Ingestion, cause error) error {
	message := cause.Error()
	if err := p.store.MarkFailed(ctx, record.ID, registry.StatusFailedException, message); err != nil {
		return fmt.Errorf("mark failed after %q: %w", message, err)
	}
	p.recorder.Event(ctx, audit.EventFailedException, "worker", record.Dataset, record.ID, message)
	logger.Error("ingestion failed with exception", logging.Error(cause))
	return nil
}
