package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventpulse/internal/services"
)

// NewIngestionParams describes a submission. The raw artifact must already be
// materialized; the registry only records the reference.
type NewIngestionParams struct {
	Dataset      string
	Source       string
	Filename     string
	FileExt      string
	SHA256       string
	RawPath      string
	VersionToken string
	ReplayOf     string
}

// NewIngestion inserts a RECEIVED record and returns it.
func (s *Store) NewIngestion(ctx context.Context, params NewIngestionParams) (*Ingestion, error) {
	if params.Dataset == "" || params.SHA256 == "" || params.RawPath == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "new ingestion", "dataset, sha256, and raw path are required", nil)
	}

	id := uuid.NewString()
	timestamp := formatTime(time.Now())

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO ingestions (
            id, dataset, source, filename, file_ext, sha256, raw_path, version_token,
            status, replay_of, processing_attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		params.Dataset,
		nullableString(params.Source),
		nullableString(params.Filename),
		nullableString(params.FileExt),
		params.SHA256,
		params.RawPath,
		nullableString(params.VersionToken),
		StatusReceived,
		nullableString(params.ReplayOf),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ingestion: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an ingestion record, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Ingestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ingestionColumns+` FROM ingestions WHERE id = ?`, id)
	record, err := scanIngestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingestion: %w", err)
	}
	return record, nil
}

// ListOptions filters List results. Zero values mean no filter; Limit <= 0
// applies a default of 100.
type ListOptions struct {
	Dataset string
	Status  Status
	Limit   int
}

// List returns ingestion records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Ingestion, error) {
	query := `SELECT ` + ingestionColumns + ` FROM ingestions`
	var (
		conds []string
		args  []any
	)
	if opts.Dataset != "" {
		conds = append(conds, "dataset = ?")
		args = append(args, opts.Dataset)
	}
	if opts.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, opts.Status)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingestions: %w", err)
	}
	defer rows.Close()

	var records []*Ingestion
	for rows.Next() {
		record, err := scanIngestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingestion: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Replay creates a brand-new RECEIVED record referencing the same raw
// artifact as the original. The original record is untouched; full history is
// preserved rather than mutated in place.
func (s *Store) Replay(ctx context.Context, id string) (*Ingestion, error) {
	original, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, services.Wrap(services.ErrNotFound, "registry", "replay", fmt.Sprintf("ingestion %s not found", id), nil)
	}

	return s.NewIngestion(ctx, NewIngestionParams{
		Dataset:      original.Dataset,
		Source:       "replay:" + original.ID,
		Filename:     original.Filename,
		FileExt:      original.FileExt,
		SHA256:       original.SHA256,
		RawPath:      original.RawPath,
		VersionToken: original.VersionToken,
		ReplayOf:     original.ID,
	})
}
