// Package schema infers a stable logical schema from a parsed table and
// fingerprints it for drift detection. The fingerprint is computed over
// columns sorted by name, so two files with the same columns in different
// order hash identically.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"eventpulse/internal/tabular"
)

// Column pairs a column name with its inferred logical type.
type Column struct {
	Name        string `json:"name"`
	LogicalType string `json:"logical_type"`
}

// Schema is the inferred shape of a dataset file. Columns are always sorted
// by name.
type Schema struct {
	Columns     []Column `json:"columns"`
	ColumnCount int      `json:"column_count"`
}

// Infer derives the logical schema of a table. A column's logical type comes
// from its decoded cell values; all-null columns default to string.
func Infer(table *tabular.Table) Schema {
	columns := make([]Column, 0, len(table.Columns))
	for idx, name := range table.Columns {
		columns = append(columns, Column{Name: name, LogicalType: logicalType(table, idx)})
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })
	return Schema{Columns: columns, ColumnCount: len(columns)}
}

// Hash fingerprints a schema over its sorted (name, logical type) pairs.
func Hash(s Schema) string {
	h := sha256.New()
	for _, col := range s.Columns {
		h.Write([]byte(col.Name))
		h.Write([]byte{0})
		h.Write([]byte(col.LogicalType))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Types returns a name-to-logical-type lookup for the schema.
func (s Schema) Types() map[string]string {
	types := make(map[string]string, len(s.Columns))
	for _, col := range s.Columns {
		types[col.Name] = col.LogicalType
	}
	return types
}

// MarshalJSON output is stable because Columns are sorted at inference time.
func (s Schema) JSON() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FromJSON decodes a schema previously serialized with JSON.
func FromJSON(raw string) (Schema, error) {
	var s Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Schema{}, err
	}
	return s, nil
}

func logicalType(table *tabular.Table, idx int) string {
	for _, row := range table.Rows {
		if idx >= len(row) || row[idx] == nil {
			continue
		}
		switch row[idx].(type) {
		case bool:
			return "boolean"
		case float64:
			return "number"
		case time.Time:
			return "datetime"
		default:
			return "string"
		}
	}
	return "string"
}
