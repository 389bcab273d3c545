// Package quality checks a parsed table against its dataset contract and the
// drift verdict for the ingestion. Structural violations become errors; the
// report is ok iff no errors were recorded. Drift policy is applied here and
// only here: the drift detector classifies, the validator decides.
package quality

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventpulse/internal/contract"
	"eventpulse/internal/drift"
	"eventpulse/internal/tabular"
)

// Metrics profiles the validated table. Computed even when validation fails
// so failed ingestions stay diagnosable.
type Metrics struct {
	RowCount      int                `json:"row_count"`
	ColumnCount   int                `json:"column_count"`
	NullFractions map[string]float64 `json:"null_fractions"`
}

// Report is the full validation outcome for one ingestion attempt.
type Report struct {
	OK       bool         `json:"ok"`
	Errors   []string     `json:"errors"`
	Warnings []string     `json:"warnings"`
	Metrics  Metrics      `json:"metrics"`
	Drift    drift.Report `json:"drift"`
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate runs all contract checks plus drift gating. driftPolicy is the
// effective policy for the dataset (contract policy or configured default).
func Validate(table *tabular.Table, c *contract.Contract, driftReport drift.Report, driftPolicy string) Report {
	report := Report{Drift: driftReport}

	names := c.ColumnNames()

	for _, name := range names {
		if c.Columns[name].Required && table.ColumnIndex(name) < 0 {
			report.Errors = append(report.Errors, "missing required column: "+name)
		}
	}

	declared := make(map[string]struct{}, len(c.Columns))
	for name := range c.Columns {
		declared[name] = struct{}{}
	}
	for _, name := range table.Columns {
		if _, ok := declared[name]; !ok {
			report.Warnings = append(report.Warnings, "unexpected column present: "+name)
		}
	}

	if c.PrimaryKey == "" {
		report.Warnings = append(report.Warnings, "no primary key declared: replays may duplicate curated rows")
	} else if values := table.Column(c.PrimaryKey); values != nil {
		// A null key never conflicts on upsert, so such rows would load as
		// plain appends and replays would duplicate them.
		for _, value := range values {
			if value == nil {
				report.Errors = append(report.Errors, "null values in primary key column: "+c.PrimaryKey)
				break
			}
		}
	}

	for _, name := range names {
		col := c.Columns[name]
		values := table.Column(name)
		if values == nil {
			continue
		}
		if !coercible(values, col.Type) {
			report.Errors = append(report.Errors, fmt.Sprintf("column %s has values not coercible to %s", name, col.Type))
		}
		if col.Type == contract.TypeNumber {
			report.Errors = append(report.Errors, boundErrors(name, values, col.Min, col.Max)...)
		}
	}

	uniqueCols := make([]string, 0, len(names))
	for _, name := range names {
		if c.Columns[name].Unique || name == c.PrimaryKey {
			uniqueCols = append(uniqueCols, name)
		}
	}
	sort.Strings(uniqueCols)
	for _, name := range uniqueCols {
		values := table.Column(name)
		if values == nil {
			continue
		}
		if hasDuplicates(values) {
			report.Errors = append(report.Errors, "duplicate values in unique column: "+name)
		}
	}

	fractions := make(map[string]float64, len(table.Columns))
	for _, name := range table.Columns {
		fractions[name] = table.NullFraction(name)
	}
	thresholdCols := make([]string, 0, len(c.MaxNullFraction))
	for name := range c.MaxNullFraction {
		thresholdCols = append(thresholdCols, name)
	}
	sort.Strings(thresholdCols)
	for _, name := range thresholdCols {
		if table.ColumnIndex(name) < 0 {
			continue
		}
		threshold := c.MaxNullFraction[name]
		if frac := fractions[name]; frac > threshold {
			report.Errors = append(report.Errors, fmt.Sprintf("column %s null fraction %s exceeds threshold %s",
				name, formatFraction(frac), formatFraction(threshold)))
		}
	}

	report.Metrics = Metrics{
		RowCount:      table.RowCount(),
		ColumnCount:   len(table.Columns),
		NullFractions: fractions,
	}

	if driftReport.Type != drift.TypeNone {
		switch driftPolicy {
		case contract.DriftAllow:
		case contract.DriftFail:
			if driftReport.Breaking {
				report.Errors = append(report.Errors, "breaking schema drift under fail policy: "+summarizeDrift(driftReport))
			} else {
				report.Warnings = append(report.Warnings, "schema drift detected: "+summarizeDrift(driftReport))
			}
		default: // warn
			report.Warnings = append(report.Warnings, "schema drift detected: "+summarizeDrift(driftReport))
		}
	}

	report.OK = len(report.Errors) == 0
	return report
}

// JSON serializes the report for registry storage and the lineage artifact.
func (r Report) JSON() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FromJSON decodes a stored quality report.
func FromJSON(raw string) (Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Report{}, err
	}
	return r, nil
}

func coercible(values []any, logicalType string) bool {
	for _, value := range values {
		if value == nil {
			continue
		}
		if !cellCoercible(value, logicalType) {
			return false
		}
	}
	return true
}

func cellCoercible(value any, logicalType string) bool {
	switch logicalType {
	case contract.TypeString:
		return true
	case contract.TypeNumber:
		_, ok := asNumber(value)
		return ok
	case contract.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return true
		case string:
			return strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
		default:
			return false
		}
	case contract.TypeDatetime:
		switch v := value.(type) {
		case time.Time:
			return true
		case string:
			for _, layout := range datetimeLayouts {
				if _, err := time.Parse(layout, v); err == nil {
					return true
				}
			}
			return false
		default:
			return false
		}
	default:
		return true
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func boundErrors(name string, values []any, min, max *float64) []string {
	var errs []string
	belowMin, aboveMax := false, false
	for _, value := range values {
		if value == nil {
			continue
		}
		f, ok := asNumber(value)
		if !ok {
			continue
		}
		if min != nil && f < *min {
			belowMin = true
		}
		if max != nil && f > *max {
			aboveMax = true
		}
	}
	if belowMin {
		errs = append(errs, fmt.Sprintf("column %s has values below min (%s)", name, formatNumber(*min)))
	}
	if aboveMax {
		errs = append(errs, fmt.Sprintf("column %s has values above max (%s)", name, formatNumber(*max)))
	}
	return errs
}

func hasDuplicates(values []any) bool {
	seen := make(map[any]struct{}, len(values))
	for _, value := range values {
		if value == nil {
			continue
		}
		if _, dup := seen[value]; dup {
			return true
		}
		seen[value] = struct{}{}
	}
	return false
}

func summarizeDrift(r drift.Report) string {
	parts := make([]string, 0, 3)
	if len(r.Added) > 0 {
		parts = append(parts, "added "+strings.Join(r.Added, ","))
	}
	if len(r.Removed) > 0 {
		parts = append(parts, "removed "+strings.Join(r.Removed, ","))
	}
	if len(r.Changed) > 0 {
		changes := make([]string, 0, len(r.Changed))
		for _, ch := range r.Changed {
			changes = append(changes, fmt.Sprintf("%s %s->%s", ch.Column, ch.From, ch.To))
		}
		parts = append(parts, "changed "+strings.Join(changes, ","))
	}
	if len(parts) == 0 {
		return "no column changes"
	}
	return strings.Join(parts, "; ")
}

func formatFraction(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
