package tabular_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"eventpulse/internal/services"
	"eventpulse/internal/tabular"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func writeXLSX(t *testing.T, headers []string, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.xlsx")

	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	setCell := func(col, row int, value any) {
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := workbook.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("set cell %s: %v", cell, err)
		}
	}

	for c, name := range headers {
		setCell(c, 0, name)
	}
	for r, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			setCell(c, r+1, value)
		}
	}

	if err := workbook.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestReadXLSXTypesColumns(t *testing.T) {
	path := writeXLSX(t, []string{"id", "amount", "active", "notes"}, [][]any{
		{"a1", 10.5, true, "first"},
		{"a2", 3, false, nil},
	})

	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := table.RowCount(); got != 2 {
		t.Fatalf("rows = %d", got)
	}
	if len(table.Columns) != 4 || table.Columns[0] != "id" || table.Columns[3] != "notes" {
		t.Fatalf("columns = %v", table.Columns)
	}

	if v, ok := table.Rows[0][1].(float64); !ok || v != 10.5 {
		t.Fatalf("amount[0] = %#v", table.Rows[0][1])
	}
	if v, ok := table.Rows[1][1].(float64); !ok || v != 3 {
		t.Fatalf("amount[1] = %#v", table.Rows[1][1])
	}
	if v, ok := table.Rows[0][2].(bool); !ok || !v {
		t.Fatalf("active[0] = %#v", table.Rows[0][2])
	}
	// The sheet reader trims trailing empty cells from each row; the short
	// row must come back padded with a null.
	if table.Rows[1][3] != nil {
		t.Fatalf("notes[1] should be null, got %#v", table.Rows[1][3])
	}
}

func TestReadXLSXHeaderOnly(t *testing.T) {
	path := writeXLSX(t, []string{"id", "amount"}, nil)
	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.RowCount() != 0 {
		t.Fatalf("rows = %d", table.RowCount())
	}
	if len(table.Columns) != 2 {
		t.Fatalf("columns = %v", table.Columns)
	}
}

func TestReadXLSXRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := os.WriteFile(path, []byte("not a workbook"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := tabular.Read(path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadCSVTypesColumns(t *testing.T) {
	path := writeCSV(t, "id,amount,active,recorded_at,notes\n"+
		"a1,10.5,true,2026-01-02,first\n"+
		"a2,3,false,2026-01-03,\n"+
		"a3,NA,true,2026-01-04,third\n")

	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := table.RowCount(); got != 3 {
		t.Fatalf("rows = %d", got)
	}
	if len(table.Columns) != 5 || table.Columns[0] != "id" {
		t.Fatalf("columns = %v", table.Columns)
	}

	if v, ok := table.Rows[0][1].(float64); !ok || v != 10.5 {
		t.Fatalf("amount[0] = %#v", table.Rows[0][1])
	}
	if table.Rows[2][1] != nil {
		t.Fatalf("amount[2] should be null, got %#v", table.Rows[2][1])
	}
	if v, ok := table.Rows[1][2].(bool); !ok || v {
		t.Fatalf("active[1] = %#v", table.Rows[1][2])
	}
	ts, ok := table.Rows[0][3].(time.Time)
	if !ok {
		t.Fatalf("recorded_at[0] = %#v", table.Rows[0][3])
	}
	if ts.Year() != 2026 || ts.Month() != time.January || ts.Day() != 2 {
		t.Fatalf("recorded_at[0] = %v", ts)
	}
	if table.Rows[1][4] != nil {
		t.Fatalf("notes[1] should be null, got %#v", table.Rows[1][4])
	}
}

func TestReadCSVMixedColumnStaysString(t *testing.T) {
	path := writeCSV(t, "code\n100\nA7\n")
	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v, ok := table.Rows[0][0].(string); !ok || v != "100" {
		t.Fatalf("mixed column should stay string, got %#v", table.Rows[0][0])
	}
}

func TestReadCSVShortRowsPadWithNull(t *testing.T) {
	path := writeCSV(t, "a,b,c\n1,2\n")
	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Rows[0][2] != nil {
		t.Fatalf("missing trailing cell should be null, got %#v", table.Rows[0][2])
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	path := writeCSV(t, "a,b\n")
	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.RowCount() != 0 {
		t.Fatalf("rows = %d", table.RowCount())
	}
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := tabular.Read(path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNullFraction(t *testing.T) {
	path := writeCSV(t, "a,b\n1,\n2,x\n3,\n,y\n")
	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := table.NullFraction("b"); got != 0.5 {
		t.Fatalf("NullFraction(b) = %v", got)
	}
	if got := table.NullFraction("a"); got != 0.25 {
		t.Fatalf("NullFraction(a) = %v", got)
	}
	if got := table.NullFraction("missing"); got != 0 {
		t.Fatalf("NullFraction(missing) = %v", got)
	}
}

func TestColumnAccessors(t *testing.T) {
	path := writeCSV(t, "a,b\n1,x\n2,y\n")
	table, err := tabular.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if idx := table.ColumnIndex("b"); idx != 1 {
		t.Fatalf("ColumnIndex(b) = %d", idx)
	}
	if idx := table.ColumnIndex("z"); idx != -1 {
		t.Fatalf("ColumnIndex(z) = %d", idx)
	}
	values := table.Column("b")
	if len(values) != 2 || values[0] != "x" {
		t.Fatalf("Column(b) = %#v", values)
	}
	if table.Column("z") != nil {
		t.Fatal("Column(z) should be nil")
	}
}
