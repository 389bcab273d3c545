// Package audit records append-only audit events and per-attempt lineage
// artifacts. Event recording is best-effort: a failure to write an audit row
// is logged and swallowed so it can never cascade into an ingestion failure.
// Lineage writes return their errors — losing lineage is a real failure.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"eventpulse/internal/drift"
	"eventpulse/internal/logging"
	"eventpulse/internal/registry"
)

// Audit event types emitted by the pipeline.
const (
	EventReceived          = "ingestion.received"
	EventClaimed           = "ingestion.claimed"
	EventLoaded            = "ingestion.loaded"
	EventFailedQuality     = "ingestion.failed_quality"
	EventFailedDrift       = "ingestion.failed_drift"
	EventFailedException   = "ingestion.failed_exception"
	EventFailedMaxAttempts = "ingestion.failed_max_attempts"
	EventReplayed          = "ingestion.replayed"
	EventReclaimed         = "ingestion.reclaimed"
)

// QualitySummary condenses a quality report for the lineage artifact.
type QualitySummary struct {
	OK           bool `json:"ok"`
	ErrorCount   int  `json:"error_count"`
	WarningCount int  `json:"warning_count"`
	RowCount     int  `json:"row_count"`
}

// LoadSummary condenses a curated load for the lineage artifact.
type LoadSummary struct {
	Table        string `json:"table"`
	RowsAffected int64  `json:"rows_affected"`
	Upsert       bool   `json:"upsert"`
}

// Artifact is the immutable lineage record for one ingestion attempt.
type Artifact struct {
	IngestionID    string          `json:"ingestion_id"`
	Dataset        string          `json:"dataset"`
	RawPath        string          `json:"raw_path"`
	SHA256         string          `json:"sha256"`
	VersionToken   string          `json:"version_token,omitempty"`
	ContractSHA256 string          `json:"contract_sha256"`
	SchemaHash     string          `json:"schema_hash"`
	Drift          drift.Report    `json:"drift"`
	Quality        *QualitySummary `json:"quality,omitempty"`
	Load           *LoadSummary    `json:"load,omitempty"`
}

// Recorder writes audit events and lineage artifacts through the registry.
type Recorder struct {
	store  *registry.Store
	logger *slog.Logger
}

// NewRecorder builds a Recorder. A nil logger is replaced with a no-op.
func NewRecorder(store *registry.Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logging.NewComponentLogger(logger, "audit"),
	}
}

// Event appends an audit event. Never returns an error: persistence failures
// are logged and dropped.
func (r *Recorder) Event(ctx context.Context, eventType, actor, dataset, ingestionID, details string) {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.InsertAuditEvent(ctx, eventType, actor, dataset, ingestionID, details); err != nil {
		r.logger.Warn("audit event dropped",
			logging.String("event_type", eventType),
			logging.String(logging.FieldDataset, dataset),
			logging.String(logging.FieldIngestionID, ingestionID),
			logging.Error(err),
		)
	}
}

// WriteLineage persists the lineage artifact for an attempt.
func (r *Recorder) WriteLineage(ctx context.Context, artifact Artifact) error {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	return r.store.SaveLineage(ctx, artifact.IngestionID, string(raw))
}
