// Package tabular reads CSV and XLSX files into a typed in-memory table.
//
// The first row is always the header. Cell values are decoded into a small
// closed set of Go types: string, float64, bool, time.Time, or nil for null.
// A column's type is detected from its non-null values; if every value parses
// as the candidate type the whole column is decoded as that type, otherwise
// the column stays string. Mixed columns therefore never lose data.
package tabular

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"eventpulse/internal/services"
)

// Table holds parsed file contents with columns in file order.
type Table struct {
	Columns []string
	Rows    [][]any
}

var nullTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"nan":  {},
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Read parses the file at path, dispatching on its extension.
func Read(path string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, services.Wrap(services.ErrValidation, "tabular", "read",
			fmt.Sprintf("unsupported file extension %q", ext), nil)
	}
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column, or nil if absent.
func (t *Table) Column(name string) []any {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values
}

// NullFraction returns the fraction of null cells in the named column.
// An empty table or unknown column yields 0.
func (t *Table) NullFraction(name string) float64 {
	idx := t.ColumnIndex(name)
	if idx < 0 || len(t.Rows) == 0 {
		return 0
	}
	nulls := 0
	for _, row := range t.Rows {
		if idx >= len(row) || row[idx] == nil {
			nulls++
		}
	}
	return float64(nulls) / float64(len(t.Rows))
}

// fromRecords builds a typed table from raw string records. The header row is
// normalized with TrimSpace; column types are detected per column before any
// cell is converted.
func fromRecords(records [][]string, source string) (*Table, error) {
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrValidation, "tabular", "parse",
			fmt.Sprintf("%s has no header row", source), nil)
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}

	raw := records[1:]
	kinds := make([]cellKind, len(header))
	for i := range header {
		kinds[i] = detectColumnKind(raw, i)
	}

	rows := make([][]any, len(raw))
	for r, record := range raw {
		row := make([]any, len(header))
		for c := range header {
			var value string
			if c < len(record) {
				value = record[c]
			}
			row[c] = convertCell(value, kinds[c])
		}
		rows[r] = row
	}

	return &Table{Columns: header, Rows: rows}, nil
}

type cellKind int

const (
	kindString cellKind = iota
	kindNumber
	kindBoolean
	kindDatetime
)

func detectColumnKind(rows [][]string, col int) cellKind {
	seen := false
	isBool, isNumber, isDatetime := true, true, true
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if isNull(value) {
			continue
		}
		seen = true
		if isBool && !parseableBool(value) {
			isBool = false
		}
		if isNumber && !parseableNumber(value) {
			isNumber = false
		}
		if isDatetime && !parseableDatetime(value) {
			isDatetime = false
		}
		if !isBool && !isNumber && !isDatetime {
			return kindString
		}
	}
	switch {
	case !seen:
		return kindString
	case isBool:
		return kindBoolean
	case isNumber:
		return kindNumber
	case isDatetime:
		return kindDatetime
	default:
		return kindString
	}
}

func convertCell(value string, kind cellKind) any {
	trimmed := strings.TrimSpace(value)
	if isNull(trimmed) {
		return nil
	}
	switch kind {
	case kindBoolean:
		return strings.EqualFold(trimmed, "true")
	case kindNumber:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return trimmed
		}
		return f
	case kindDatetime:
		for _, layout := range datetimeLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts.UTC()
			}
		}
		return trimmed
	default:
		return trimmed
	}
}

func isNull(value string) bool {
	_, ok := nullTokens[strings.ToLower(value)]
	return ok
}

func parseableBool(value string) bool {
	return strings.EqualFold(value, "true") || strings.EqualFold(value, "false")
}

func parseableNumber(value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

func parseableDatetime(value string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
