package curated

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"eventpulse/internal/contract"
	"eventpulse/internal/tabular"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	loader, err := OpenPath(filepath.Join(t.TempDir(), "warehouse.db"))
	if err != nil {
		t.Fatalf("open loader: %v", err)
	}
	t.Cleanup(func() { _ = loader.Close() })
	return loader
}

func keyedContract() *contract.Contract {
	return &contract.Contract{
		Dataset:    "parcels",
		PrimaryKey: "id",
		Columns: map[string]contract.Column{
			"id":     {Type: contract.TypeString, Required: true, Unique: true},
			"amount": {Type: contract.TypeNumber},
		},
	}
}

func sampleTable() *tabular.Table {
	return &tabular.Table{
		Columns: []string{"id", "amount"},
		Rows: [][]any{
			{"a1", 10.0},
			{"a2", 20.0},
		},
	}
}

func TestLoadUpsertIsIdempotent(t *testing.T) {
	loader := newTestLoader(t)
	ctx := context.Background()
	c := keyedContract()

	first, err := loader.Load(ctx, c, sampleTable(), "ing-1", "sha-1")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Table != "curated_parcels" || !first.Upsert {
		t.Fatalf("result = %+v", first)
	}

	// Second ingestion of the same logical rows: no duplicates.
	if _, err := loader.Load(ctx, c, sampleTable(), "ing-2", "sha-1"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	count, err := loader.RowCount(ctx, "parcels")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 2 {
		t.Fatalf("rows = %d, want 2 after reprocessing", count)
	}

	// Lineage reflects the most recent ingestion.
	var ingestionID string
	row := loader.db.QueryRow(`SELECT _ingestion_id FROM curated_parcels WHERE id = 'a1'`)
	if err := row.Scan(&ingestionID); err != nil {
		t.Fatalf("scan lineage: %v", err)
	}
	if ingestionID != "ing-2" {
		t.Fatalf("_ingestion_id = %q, want ing-2", ingestionID)
	}
}

func TestLoadUpsertOverwritesChangedValues(t *testing.T) {
	loader := newTestLoader(t)
	ctx := context.Background()
	c := keyedContract()

	if _, err := loader.Load(ctx, c, sampleTable(), "ing-1", "sha-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	updated := sampleTable()
	updated.Rows[0][1] = 99.0
	if _, err := loader.Load(ctx, c, updated, "ing-2", "sha-2"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	var amount float64
	if err := loader.db.QueryRow(`SELECT amount FROM curated_parcels WHERE id = 'a1'`).Scan(&amount); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if amount != 99.0 {
		t.Fatalf("amount = %v, want 99", amount)
	}
}

func TestLoadAppendOnlyWithoutPrimaryKey(t *testing.T) {
	loader := newTestLoader(t)
	ctx := context.Background()
	c := keyedContract()
	c.PrimaryKey = ""

	for _, ingestion := range []string{"ing-1", "ing-2"} {
		result, err := loader.Load(ctx, c, sampleTable(), ingestion, "sha-1")
		if err != nil {
			t.Fatalf("load %s: %v", ingestion, err)
		}
		if result.Upsert {
			t.Fatal("load without primary key must not report upsert")
		}
	}

	count, err := loader.RowCount(ctx, "parcels")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 4 {
		t.Fatalf("rows = %d, append-only load should duplicate", count)
	}
}

func TestLoadRejectsNullPrimaryKey(t *testing.T) {
	loader := newTestLoader(t)
	ctx := context.Background()
	c := keyedContract()

	// Without the NOT NULL constraint SQLite would accept these rows as
	// appends and a replay would double them instead of upserting.
	table := &tabular.Table{
		Columns: []string{"id", "amount"},
		Rows: [][]any{
			{nil, 10.0},
			{nil, 20.0},
		},
	}

	if _, err := loader.Load(ctx, c, table, "ing-1", "sha-1"); err == nil {
		t.Fatal("load with null primary key values should fail")
	}
	count, err := loader.RowCount(ctx, "parcels")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rows = %d, want 0 after rejected load", count)
	}
}

func TestLoadHandlesLargeBatches(t *testing.T) {
	loader := newTestLoader(t)
	ctx := context.Background()
	c := keyedContract()

	table := &tabular.Table{Columns: []string{"id", "amount"}}
	for i := 0; i < batchSize+50; i++ {
		table.Rows = append(table.Rows, []any{"row-" + strconv.Itoa(i), float64(i)})
	}

	result, err := loader.Load(ctx, c, table, "ing-1", "sha-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsAffected != int64(len(table.Rows)) {
		t.Fatalf("rows affected = %d, want %d", result.RowsAffected, len(table.Rows))
	}
	count, _ := loader.RowCount(ctx, "parcels")
	if count != int64(len(table.Rows)) {
		t.Fatalf("rows = %d", count)
	}
}

func TestLoadIgnoresUndeclaredColumns(t *testing.T) {
	loader := newTestLoader(t)
	ctx := context.Background()
	c := keyedContract()

	table := sampleTable()
	table.Columns = append(table.Columns, "surprise")
	for i := range table.Rows {
		table.Rows[i] = append(table.Rows[i], "x")
	}

	if _, err := loader.Load(ctx, c, table, "ing-1", "sha-1"); err != nil {
		t.Fatalf("load with extra column: %v", err)
	}
	count, _ := loader.RowCount(ctx, "parcels")
	if count != 2 {
		t.Fatalf("rows = %d", count)
	}
}

func TestRowCountMissingTable(t *testing.T) {
	loader := newTestLoader(t)
	count, err := loader.RowCount(context.Background(), "never_loaded")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d", count)
	}
}
