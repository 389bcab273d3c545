package api

import (
	"context"
	"errors"
	"time"

	"eventpulse/internal/audit"
	"eventpulse/internal/curated"
	"eventpulse/internal/registry"
)

// RegistryService exposes read and admin operations over the ingestion
// registry for the HTTP server and CLI.
type RegistryService struct {
	store    *registry.Store
	loader   *curated.Loader
	recorder *audit.Recorder
}

// NewRegistryService builds a service. loader and recorder are optional;
// without a loader curated row counts read as zero, without a recorder admin
// actions are not audited.
func NewRegistryService(store *registry.Store, loader *curated.Loader, recorder *audit.Recorder) *RegistryService {
	return &RegistryService{store: store, loader: loader, recorder: recorder}
}

// List returns records matching the filters, newest first.
func (s *RegistryService) List(ctx context.Context, dataset, status string, limit int) ([]IngestionView, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("registry store unavailable")
	}
	records, err := s.store.List(ctx, registry.ListOptions{
		Dataset: dataset,
		Status:  registry.Status(status),
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	views := make([]IngestionView, 0, len(records))
	for _, record := range records {
		views = append(views, ingestionView(record))
	}
	return views, nil
}

// Describe returns one record, or nil when the id is unknown.
func (s *RegistryService) Describe(ctx context.Context, id string) (*IngestionView, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	view := ingestionView(record)
	return &view, nil
}

// QualityReport returns the stored report for a record, or nil.
func (s *RegistryService) QualityReport(ctx context.Context, id string) (*QualityReportResponse, error) {
	report, err := s.store.GetQualityReport(ctx, id)
	if err != nil || report == nil {
		return nil, err
	}
	return &QualityReportResponse{
		IngestionID: report.IngestionID,
		OK:          report.OK,
		Report:      report.ReportJSON,
		CreatedAt:   report.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Lineage returns the stored lineage artifact for a record, or nil.
func (s *RegistryService) Lineage(ctx context.Context, id string) (*LineageResponse, error) {
	lineage, err := s.store.GetLineage(ctx, id)
	if err != nil || lineage == nil {
		return nil, err
	}
	return &LineageResponse{
		IngestionID: lineage.IngestionID,
		Artifact:    lineage.ArtifactJSON,
		CreatedAt:   lineage.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Events returns the audit trail for a record, oldest first.
func (s *RegistryService) Events(ctx context.Context, id string) ([]AuditEventView, error) {
	events, err := s.store.AuditEventsForIngestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return auditViews(events), nil
}

// RecentEvents returns the newest audit events up to limit.
func (s *RegistryService) RecentEvents(ctx context.Context, limit int) ([]AuditEventView, error) {
	events, err := s.store.RecentAuditEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	return auditViews(events), nil
}

// SchemaHistory returns a dataset's observed schema versions, newest first.
func (s *RegistryService) SchemaHistory(ctx context.Context, dataset string) ([]SchemaView, error) {
	records, err := s.store.SchemaHistory(ctx, dataset)
	if err != nil {
		return nil, err
	}
	views := make([]SchemaView, 0, len(records))
	for _, record := range records {
		views = append(views, SchemaView{
			SchemaHash:  record.SchemaHash,
			Schema:      record.SchemaJSON,
			FirstSeenAt: record.FirstSeenAt,
			LastSeenAt:  record.LastSeenAt,
		})
	}
	return views, nil
}

// Datasets summarizes ingestion activity per dataset, including curated row
// counts when a warehouse connection is available.
func (s *RegistryService) Datasets(ctx context.Context) ([]DatasetView, error) {
	summaries, err := s.store.DatasetSummaries(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]DatasetView, 0, len(summaries))
	for _, summary := range summaries {
		view := DatasetView{
			Dataset:      summary.Dataset,
			Total:        summary.Ingestions,
			Loaded:       summary.Loaded,
			Failed:       summary.Failed,
			LastActivity: summary.LastIngestion,
		}
		if s.loader != nil {
			if count, countErr := s.loader.RowCount(ctx, summary.Dataset); countErr == nil {
				view.CuratedRows = count
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Replay creates a fresh RECEIVED record reprocessing a prior ingestion's raw
// artifact.
func (s *RegistryService) Replay(ctx context.Context, id, actor string) (*IngestionView, error) {
	record, err := s.store.Replay(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recorder.Event(ctx, audit.EventReplayed, actor, record.Dataset, record.ID, "replay of "+id)
	view := ingestionView(record)
	return &view, nil
}

// Reclaim runs one stale-claim sweep with the supplied cutoff and cap.
func (s *RegistryService) Reclaim(ctx context.Context, cutoff time.Time, limit int, actor string) (int64, error) {
	count, err := s.store.ReclaimStale(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.recorder.Event(ctx, audit.EventReclaimed, actor, "", "", "manual reclaim sweep")
	}
	return count, nil
}

func ingestionView(record *registry.Ingestion) IngestionView {
	return IngestionView{
		ID:          record.ID,
		Dataset:     record.Dataset,
		Source:      record.Source,
		Filename:    record.Filename,
		SHA256:      record.SHA256,
		Status:      string(record.Status),
		Error:       record.Error,
		ReplayOf:    record.ReplayOf,
		Attempts:    record.ProcessingAttempts,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		StartedAt:   record.ProcessingStarted,
		HeartbeatAt: record.ProcessingHeartbeat,
		ProcessedAt: record.ProcessedAt,
	}
}

func auditViews(events []*registry.AuditEvent) []AuditEventView {
	views := make([]AuditEventView, 0, len(events))
	for _, event := range events {
		views = append(views, AuditEventView{
			ID:          event.ID,
			EventType:   event.EventType,
			Actor:       event.Actor,
			Dataset:     event.Dataset,
			IngestionID: event.IngestionID,
			Details:     event.Details,
			CreatedAt:   event.CreatedAt,
		})
	}
	return views
}
