package drift_test

import (
	"testing"

	"eventpulse/internal/drift"
	"eventpulse/internal/schema"
)

func mkSchema(cols map[string]string) schema.Schema {
	s := schema.Schema{}
	for name, typ := range cols {
		s.Columns = append(s.Columns, schema.Column{Name: name, LogicalType: typ})
	}
	s.ColumnCount = len(s.Columns)
	return s
}

func TestDetectFirstObservation(t *testing.T) {
	report := drift.Detect(nil, mkSchema(map[string]string{"a": "string"}))
	if report.Type != drift.TypeNone || report.Breaking {
		t.Fatalf("first observation report = %+v", report)
	}
}

func TestDetectIdenticalSchemas(t *testing.T) {
	prev := mkSchema(map[string]string{"a": "string", "b": "number"})
	report := drift.Detect(&prev, mkSchema(map[string]string{"a": "string", "b": "number"}))
	if report.Type != drift.TypeNone || report.Breaking {
		t.Fatalf("identical schemas report = %+v", report)
	}
}

func TestDetectAddedColumnIsNotBreaking(t *testing.T) {
	prev := mkSchema(map[string]string{"a": "string"})
	report := drift.Detect(&prev, mkSchema(map[string]string{"a": "string", "b": "number"}))
	if report.Type != drift.TypeDrift {
		t.Fatalf("type = %q", report.Type)
	}
	if report.Breaking {
		t.Fatal("added column should not be breaking")
	}
	if len(report.Added) != 1 || report.Added[0] != "b" {
		t.Fatalf("added = %v", report.Added)
	}
}

func TestDetectRemovedColumnIsBreaking(t *testing.T) {
	prev := mkSchema(map[string]string{"a": "string", "b": "number"})
	report := drift.Detect(&prev, mkSchema(map[string]string{"a": "string"}))
	if !report.Breaking {
		t.Fatal("removed column should be breaking")
	}
	if len(report.Removed) != 1 || report.Removed[0] != "b" {
		t.Fatalf("removed = %v", report.Removed)
	}
}

func TestDetectTypeChangeIsBreaking(t *testing.T) {
	prev := mkSchema(map[string]string{"a": "number"})
	report := drift.Detect(&prev, mkSchema(map[string]string{"a": "string"}))
	if !report.Breaking {
		t.Fatal("type change should be breaking")
	}
	if len(report.Changed) != 1 {
		t.Fatalf("changed = %v", report.Changed)
	}
	change := report.Changed[0]
	if change.Column != "a" || change.From != "number" || change.To != "string" {
		t.Fatalf("change = %+v", change)
	}
}

func TestDetectMixedChanges(t *testing.T) {
	prev := mkSchema(map[string]string{"keep": "string", "gone": "number", "retyped": "string"})
	curr := mkSchema(map[string]string{"keep": "string", "retyped": "boolean", "fresh": "datetime"})
	report := drift.Detect(&prev, curr)
	if report.Type != drift.TypeDrift || !report.Breaking {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Added) != 1 || len(report.Removed) != 1 || len(report.Changed) != 1 {
		t.Fatalf("report = %+v", report)
	}
}
