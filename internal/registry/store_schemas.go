package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const schemaColumns = "id, dataset, schema_hash, schema_json, first_seen_at, last_seen_at"

// UpsertSchema records a schema observation. The history is append-only: a
// new (dataset, hash) pair inserts a row; a repeat observation only bumps
// last_seen_at.
func (s *Store) UpsertSchema(ctx context.Context, dataset, schemaHash, schemaJSON string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO dataset_schemas (dataset, schema_hash, schema_json, first_seen_at, last_seen_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(dataset, schema_hash) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		dataset,
		schemaHash,
		schemaJSON,
		now,
		now,
	); err != nil {
		return fmt.Errorf("upsert schema: %w", err)
	}
	return nil
}

// LatestSchema returns the most recently seen schema for a dataset, or nil
// when the dataset has no history. Always read from the store, never cached:
// the latest row is the baseline for drift detection.
func (s *Store) LatestSchema(ctx context.Context, dataset string) (*SchemaRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+schemaColumns+` FROM dataset_schemas WHERE dataset = ? ORDER BY last_seen_at DESC, id DESC LIMIT 1`,
		dataset,
	)
	record, err := scanSchemaRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest schema: %w", err)
	}
	return record, nil
}

// SchemaHistory returns all observed schemas for a dataset, newest first.
func (s *Store) SchemaHistory(ctx context.Context, dataset string) ([]*SchemaRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+schemaColumns+` FROM dataset_schemas WHERE dataset = ? ORDER BY last_seen_at DESC, id DESC`,
		dataset,
	)
	if err != nil {
		return nil, fmt.Errorf("schema history: %w", err)
	}
	defer rows.Close()

	var records []*SchemaRecord
	for rows.Next() {
		record, err := scanSchemaRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanSchemaRecord(scanner interface{ Scan(dest ...any) error }) (*SchemaRecord, error) {
	var (
		record   SchemaRecord
		firstRaw string
		lastRaw  string
	)
	if err := scanner.Scan(&record.ID, &record.Dataset, &record.SchemaHash, &record.SchemaJSON, &firstRaw, &lastRaw); err != nil {
		return nil, err
	}
	if first, err := parseTimeString(firstRaw); err == nil {
		record.FirstSeenAt = first
	}
	if last, err := parseTimeString(lastRaw); err == nil {
		record.LastSeenAt = last
	}
	return &record, nil
}
