package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Claim attempts to take ownership of a record for processing. The claim is a
// single atomic conditional update: only RECEIVED and FAILED_EXCEPTION records
// below the attempt cap transition to PROCESSING, with attempts incremented
// and both processing timestamps set. Concurrent claims on the same record
// have exactly one winner; losers get (nil, false, nil).
//
// A claimable record that has exhausted its attempts transitions to
// FAILED_MAX_ATTEMPTS instead and is not claimed.
func (s *Store) Claim(ctx context.Context, id string, maxAttempts int) (*Ingestion, bool, error) {
	now := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingestions
         SET status = ?, processing_attempts = processing_attempts + 1,
             processing_started_at = ?, processing_heartbeat_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?) AND processing_attempts < ?`,
		StatusProcessing,
		now,
		now,
		now,
		id,
		StatusReceived,
		StatusFailedException,
		maxAttempts,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim ingestion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 1 {
		record, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return record, true, nil
	}

	// The claim may have lost to another worker, targeted a terminal record,
	// or hit the attempt cap. Only the last case changes state.
	exhaustedRes, err := s.execWithRetry(
		ctx,
		`UPDATE ingestions
         SET status = ?, error = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?) AND processing_attempts >= ?`,
		StatusFailedMaxAttempts,
		fmt.Sprintf("processing attempts exhausted (max %d)", maxAttempts),
		now,
		id,
		StatusReceived,
		StatusFailedException,
		maxAttempts,
	)
	if err != nil {
		return nil, false, fmt.Errorf("mark attempts exhausted: %w", err)
	}
	if _, err := exhaustedRes.RowsAffected(); err != nil {
		return nil, false, fmt.Errorf("exhausted rows affected: %w", err)
	}
	return nil, false, nil
}

// NextClaimable returns the oldest record a worker could claim, or nil when
// the registry has no claimable work. The returned record is a candidate, not
// a claim: the caller must still win the conditional update in Claim.
func (s *Store) NextClaimable(ctx context.Context) (*Ingestion, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+ingestionColumns+` FROM ingestions
         WHERE status IN (?, ?) ORDER BY created_at LIMIT 1`,
		StatusReceived,
		StatusFailedException,
	)
	record, err := scanIngestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next claimable: %w", err)
	}
	return record, nil
}

// Heartbeat refreshes the processing heartbeat for an in-flight record.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE ingestions SET processing_heartbeat_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// MarkLoaded finalizes a successful attempt. Only PROCESSING records can
// transition to LOADED.
func (s *Store) MarkLoaded(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingestions
         SET status = ?, processed_at = ?, error = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusLoaded,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark loaded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark loaded rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark loaded: ingestion %s is not PROCESSING", id)
	}
	return nil
}

// MarkFailed finalizes an attempt with one of the failure statuses. Only
// PROCESSING records can fail; the error message is recorded on the record.
func (s *Store) MarkFailed(ctx context.Context, id string, status Status, message string) error {
	switch status {
	case StatusFailedQuality, StatusFailedDrift, StatusFailedException, StatusFailedMaxAttempts:
	default:
		return fmt.Errorf("mark failed: %q is not a failure status", status)
	}

	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingestions
         SET status = ?, error = ?, processed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		status,
		nullableString(message),
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark failed rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark failed: ingestion %s is not PROCESSING", id)
	}
	return nil
}

// ReclaimStale returns PROCESSING records whose heartbeat is strictly older
// than cutoff back to RECEIVED, up to limit per sweep. Records whose workers
// are alive (heartbeat refreshed) no longer match the predicate and are
// skipped, so the sweep is safe to run concurrently with claiming.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingestions
         SET status = ?, processing_started_at = NULL, processing_heartbeat_at = NULL, updated_at = ?
         WHERE id IN (
             SELECT id FROM ingestions
             WHERE status = ? AND processing_heartbeat_at IS NOT NULL AND processing_heartbeat_at < ?
             ORDER BY processing_heartbeat_at
             LIMIT ?
         )`,
		StatusReceived,
		now,
		StatusProcessing,
		formatTime(cutoff),
		limit,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale ingestions: %w", err)
	}
	return res.RowsAffected()
}
