package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertAuditEvent appends to the audit log. The ingestion reference uses
// ON DELETE SET NULL so audit history outlives any pruned record.
func (s *Store) InsertAuditEvent(ctx context.Context, eventType, actor, dataset, ingestionID, details string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO audit_events (event_type, actor, dataset, ingestion_id, details, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		eventType,
		nullableString(actor),
		nullableString(dataset),
		nullableString(ingestionID),
		nullableString(details),
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// AuditEventsForIngestion returns events referencing an ingestion, oldest first.
func (s *Store) AuditEventsForIngestion(ctx context.Context, ingestionID string) ([]*AuditEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, event_type, actor, dataset, ingestion_id, details, created_at
         FROM audit_events WHERE ingestion_id = ? ORDER BY id`,
		ingestionID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit events for ingestion: %w", err)
	}
	defer rows.Close()
	return collectAuditEvents(rows)
}

// RecentAuditEvents returns the newest events up to limit.
func (s *Store) RecentAuditEvents(ctx context.Context, limit int) ([]*AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, event_type, actor, dataset, ingestion_id, details, created_at
         FROM audit_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent audit events: %w", err)
	}
	defer rows.Close()
	return collectAuditEvents(rows)
}

func collectAuditEvents(rows *sql.Rows) ([]*AuditEvent, error) {
	var events []*AuditEvent
	for rows.Next() {
		var (
			event       AuditEvent
			actor       sql.NullString
			dataset     sql.NullString
			ingestionID sql.NullString
			details     sql.NullString
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.EventType, &actor, &dataset, &ingestionID, &details, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Actor = actor.String
		event.Dataset = dataset.String
		event.IngestionID = ingestionID.String
		event.Details = details.String
		if created, err := parseTimeString(createdRaw); err == nil {
			event.CreatedAt = created
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
