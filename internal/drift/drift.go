// Package drift compares the latest observed schema of a dataset against the
// schema inferred from a new file. Added columns are additive; removed or
// retyped columns are breaking. How a drift report affects an ingestion is
// decided by the dataset's drift policy, not here.
package drift

import (
	"encoding/json"
	"sort"

	"eventpulse/internal/schema"
)

// Report types.
const (
	TypeNone  = "none"
	TypeDrift = "drift"
)

// TypeChange records a column whose logical type changed between schemas.
type TypeChange struct {
	Column string `json:"column"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Report describes the difference between two schema observations.
type Report struct {
	Type     string       `json:"type"`
	Added    []string     `json:"added,omitempty"`
	Removed  []string     `json:"removed,omitempty"`
	Changed  []TypeChange `json:"changed,omitempty"`
	Breaking bool         `json:"breaking"`
}

// Detect diffs the previous schema against the current one. A nil previous
// schema means this is the dataset's first observation and yields TypeNone.
func Detect(previous *schema.Schema, current schema.Schema) Report {
	if previous == nil {
		return Report{Type: TypeNone}
	}

	prevTypes := previous.Types()
	currTypes := current.Types()

	var report Report
	for name, currType := range currTypes {
		prevType, ok := prevTypes[name]
		switch {
		case !ok:
			report.Added = append(report.Added, name)
		case prevType != currType:
			report.Changed = append(report.Changed, TypeChange{Column: name, From: prevType, To: currType})
		}
	}
	for name := range prevTypes {
		if _, ok := currTypes[name]; !ok {
			report.Removed = append(report.Removed, name)
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Slice(report.Changed, func(i, j int) bool { return report.Changed[i].Column < report.Changed[j].Column })

	if len(report.Added) == 0 && len(report.Removed) == 0 && len(report.Changed) == 0 {
		report.Type = TypeNone
		return report
	}
	report.Type = TypeDrift
	report.Breaking = len(report.Removed) > 0 || len(report.Changed) > 0
	return report
}

// JSON serializes the report for storage alongside quality results.
func (r Report) JSON() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
