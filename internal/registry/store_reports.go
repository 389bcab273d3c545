package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveQualityReport stores the validation outcome for an attempt. A retried
// FAILED_EXCEPTION record reuses its id, so the report upserts in place;
// replays create new records and therefore new reports.
func (s *Store) SaveQualityReport(ctx context.Context, ingestionID string, ok bool, reportJSON string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO quality_reports (ingestion_id, ok, report_json, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(ingestion_id) DO UPDATE SET ok = excluded.ok, report_json = excluded.report_json, created_at = excluded.created_at`,
		ingestionID,
		boolToInt(ok),
		reportJSON,
		now,
	); err != nil {
		return fmt.Errorf("save quality report: %w", err)
	}
	return nil
}

// GetQualityReport returns the stored report for an ingestion, or nil.
func (s *Store) GetQualityReport(ctx context.Context, ingestionID string) (*QualityReportRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT ingestion_id, ok, report_json, created_at FROM quality_reports WHERE ingestion_id = ?`,
		ingestionID,
	)
	var (
		record     QualityReportRecord
		okInt      int
		createdRaw string
	)
	err := row.Scan(&record.IngestionID, &okInt, &record.ReportJSON, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quality report: %w", err)
	}
	record.OK = okInt != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	return &record, nil
}

// SaveLineage stores the lineage artifact for an attempt. Effectively
// write-once: only an in-place retry of the same record overwrites it.
func (s *Store) SaveLineage(ctx context.Context, ingestionID, artifactJSON string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO lineage_artifacts (ingestion_id, artifact_json, created_at)
         VALUES (?, ?, ?)
         ON CONFLICT(ingestion_id) DO UPDATE SET artifact_json = excluded.artifact_json, created_at = excluded.created_at`,
		ingestionID,
		artifactJSON,
		now,
	); err != nil {
		return fmt.Errorf("save lineage: %w", err)
	}
	return nil
}

// GetLineage returns the stored lineage artifact for an ingestion, or nil.
func (s *Store) GetLineage(ctx context.Context, ingestionID string) (*LineageRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT ingestion_id, artifact_json, created_at FROM lineage_artifacts WHERE ingestion_id = ?`,
		ingestionID,
	)
	var (
		record     LineageRecord
		createdRaw string
	)
	err := row.Scan(&record.IngestionID, &record.ArtifactJSON, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lineage: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	return &record, nil
}
