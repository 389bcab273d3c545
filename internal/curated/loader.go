// Package curated materializes validated rows into per-dataset curated tables
// in the warehouse database. Datasets with a declared primary key load via
// upsert, which is what makes reprocessing idempotent; datasets without one
// load append-only (replays may duplicate rows — a documented limitation, the
// caller is expected to warn). Every written row carries three lineage
// columns: ingestion id, load timestamp, and source content hash.
package curated

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"eventpulse/internal/config"
	"eventpulse/internal/contract"
	"eventpulse/internal/naming"
	"eventpulse/internal/services"
	"eventpulse/internal/tabular"
)

// Lineage columns present on every curated table. The leading underscore
// keeps them clear of the contract column namespace, which requires a
// lowercase-letter prefix.
const (
	ColIngestionID  = "_ingestion_id"
	ColLoadedAt     = "_loaded_at"
	ColSourceSHA256 = "_source_sha256"
)

// batchSize bounds the multi-row statements inside the load transaction.
const batchSize = 500

// Loader writes curated tables backed by a dedicated SQLite database.
type Loader struct {
	db   *sql.DB
	path string
}

// LoadResult summarizes one curated load.
type LoadResult struct {
	Table        string
	RowsAffected int64
	Upsert       bool
}

// Open connects to the warehouse database for the config.
func Open(cfg *config.Config) (*Loader, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.WarehouseDBPath())
}

// OpenPath connects to a warehouse database at an explicit path.
func OpenPath(dbPath string) (*Loader, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open warehouse db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return &Loader{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (l *Loader) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Path returns the database file path.
func (l *Loader) Path() string {
	return l.path
}

// Load writes a validated table into curated_<dataset> inside one
// transaction. Any batch failure rolls back the whole load: curated effects
// for an ingestion are all-or-nothing.
func (l *Loader) Load(ctx context.Context, c *contract.Contract, table *tabular.Table, ingestionID, sourceSHA string) (*LoadResult, error) {
	tableName := naming.CuratedTable(c.Dataset)
	columns := c.ColumnNames()

	if err := l.ensureTable(ctx, tableName, c, columns); err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "curated", "load", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	loadedAt := time.Now().UTC().Format(time.RFC3339Nano)
	statement := l.insertStatement(tableName, columns)

	var affected int64
	for start := 0; start < len(table.Rows); start += batchSize {
		end := start + batchSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		batch := table.Rows[start:end]
		args := make([]any, 0, len(batch)*(len(columns)+3))
		values := make([]string, 0, len(batch))
		rowPlaceholder := "(" + placeholders(len(columns)+3) + ")"
		for _, row := range batch {
			values = append(values, rowPlaceholder)
			for _, col := range columns {
				args = append(args, storageValue(cellAt(table, row, col)))
			}
			args = append(args, ingestionID, loadedAt, sourceSHA)
		}
		query := statement + strings.Join(values, ", ")
		if c.PrimaryKey != "" {
			query += l.conflictClause(columns, c.PrimaryKey)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "curated", "load",
				fmt.Sprintf("write batch into %s", tableName), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "curated", "load", "rows affected", err)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "curated", "load", "commit", err)
	}

	return &LoadResult{Table: tableName, RowsAffected: affected, Upsert: c.PrimaryKey != ""}, nil
}

// RowCount returns the number of rows in a curated table, or 0 when the
// table does not exist yet.
func (l *Loader) RowCount(ctx context.Context, dataset string) (int64, error) {
	normalized, err := naming.NormalizeDataset(dataset)
	if err != nil {
		return 0, err
	}
	var count int64
	err = l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+naming.CuratedTable(normalized)).Scan(&count)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, fmt.Errorf("count curated rows: %w", err)
	}
	return count, nil
}

func (l *Loader) ensureTable(ctx context.Context, tableName string, c *contract.Contract, columns []string) error {
	defs := make([]string, 0, len(columns)+3)
	for _, name := range columns {
		def := name + " " + sqliteType(c.Columns[name].Type)
		if name == c.PrimaryKey {
			// SQLite allows NULL in non-INTEGER primary keys, and ON CONFLICT
			// never fires for NULL keys. The upsert depends on NOT NULL here.
			def += " PRIMARY KEY NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs,
		ColIngestionID+" TEXT NOT NULL",
		ColLoadedAt+" TEXT NOT NULL",
		ColSourceSHA256+" TEXT NOT NULL",
	)
	query := "CREATE TABLE IF NOT EXISTS " + tableName + " (" + strings.Join(defs, ", ") + ")"
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return services.Wrap(services.ErrTransient, "curated", "ensure table", tableName, err)
	}
	return nil
}

func (l *Loader) insertStatement(tableName string, columns []string) string {
	all := append(append([]string{}, columns...), ColIngestionID, ColLoadedAt, ColSourceSHA256)
	return "INSERT INTO " + tableName + " (" + strings.Join(all, ", ") + ") VALUES "
}

func (l *Loader) conflictClause(columns []string, primaryKey string) string {
	sets := make([]string, 0, len(columns)+3)
	for _, col := range columns {
		if col == primaryKey {
			continue
		}
		sets = append(sets, col+" = excluded."+col)
	}
	sets = append(sets,
		ColIngestionID+" = excluded."+ColIngestionID,
		ColLoadedAt+" = excluded."+ColLoadedAt,
		ColSourceSHA256+" = excluded."+ColSourceSHA256,
	)
	return " ON CONFLICT(" + primaryKey + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

func cellAt(table *tabular.Table, row []any, column string) any {
	idx := table.ColumnIndex(column)
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func storageValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return v
	}
}

func sqliteType(logicalType string) string {
	switch logicalType {
	case contract.TypeNumber:
		return "REAL"
	case contract.TypeBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func placeholders(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
