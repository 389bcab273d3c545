package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats returns counts of ingestion records grouped by status.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM ingestions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("registry stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByStatus: map[Status]int64{}}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// DatasetSummaries aggregates per-dataset ingestion history, newest activity first.
func (s *Store) DatasetSummaries(ctx context.Context) ([]*DatasetSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT dataset,
                COUNT(1),
                SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
                SUM(CASE WHEN status IN (?, ?, ?, ?) THEN 1 ELSE 0 END),
                MAX(created_at)
         FROM ingestions GROUP BY dataset ORDER BY MAX(created_at) DESC`,
		StatusLoaded,
		StatusFailedQuality,
		StatusFailedDrift,
		StatusFailedException,
		StatusFailedMaxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("dataset summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*DatasetSummary
	for rows.Next() {
		var (
			summary DatasetSummary
			lastRaw sql.NullString
		)
		if err := rows.Scan(&summary.Dataset, &summary.Ingestions, &summary.Loaded, &summary.Failed, &lastRaw); err != nil {
			return nil, fmt.Errorf("scan dataset summary: %w", err)
		}
		summary.LastIngestion = parseNullableTime(lastRaw)
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// PruneTerminal deletes terminal ingestion records older than cutoff. Audit
// events survive with their ingestion reference nulled; quality reports and
// lineage artifacts cascade away with the record.
func (s *Store) PruneTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM ingestions
         WHERE status IN (?, ?, ?, ?) AND created_at < ?`,
		StatusLoaded,
		StatusFailedQuality,
		StatusFailedDrift,
		StatusFailedMaxAttempts,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune terminal ingestions: %w", err)
	}
	return res.RowsAffected()
}

// CheckHealth verifies the database answers a trivial query.
func (s *Store) CheckHealth(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("registry health check: %w", err)
	}
	return nil
}
