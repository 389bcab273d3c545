package contract_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventpulse/internal/contract"
	"eventpulse/internal/services"
)

const sampleDoc = `
dataset: parcels
description: County parcel extract
primary_key: parcel_id
columns:
  parcel_id:
    type: string
    required: true
    unique: true
  assessed_value:
    type: float
    min: 0
  is_exempt:
    type: bool
  recorded_at:
    type: timestamp
quality:
  max_null_fraction:
    assessed_value: 0.1
drift_policy: fail
`

func TestParseCanonicalizesTypes(t *testing.T) {
	c, err := contract.Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Dataset != "parcels" {
		t.Fatalf("dataset = %q", c.Dataset)
	}
	if c.PrimaryKey != "parcel_id" {
		t.Fatalf("primary key = %q", c.PrimaryKey)
	}
	want := map[string]string{
		"parcel_id":      contract.TypeString,
		"assessed_value": contract.TypeNumber,
		"is_exempt":      contract.TypeBoolean,
		"recorded_at":    contract.TypeDatetime,
	}
	for name, typ := range want {
		col, ok := c.Columns[name]
		if !ok {
			t.Fatalf("missing column %q", name)
		}
		if col.Type != typ {
			t.Fatalf("column %q type = %q, want %q", name, col.Type, typ)
		}
	}
	if !c.Columns["parcel_id"].Required || !c.Columns["parcel_id"].Unique {
		t.Fatal("parcel_id should be required and unique")
	}
	if min := c.Columns["assessed_value"].Min; min == nil || *min != 0 {
		t.Fatalf("assessed_value min = %v", min)
	}
	if got := c.MaxNullFraction["assessed_value"]; got != 0.1 {
		t.Fatalf("null fraction threshold = %v", got)
	}
	if c.DriftPolicy != contract.DriftFail {
		t.Fatalf("drift policy = %q", c.DriftPolicy)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "   "},
		{name: "missing dataset", doc: "columns:\n  a: {type: string}\n"},
		{name: "no columns", doc: "dataset: parcels\n"},
		{name: "bad column name", doc: "dataset: parcels\ncolumns:\n  Amount: {type: number}\n"},
		{name: "bad type", doc: "dataset: parcels\ncolumns:\n  amount: {type: decimal}\n"},
		{name: "pk not declared", doc: "dataset: parcels\nprimary_key: id\ncolumns:\n  amount: {type: number}\n"},
		{name: "threshold out of range", doc: "dataset: parcels\ncolumns:\n  amount: {type: number}\nquality:\n  max_null_fraction:\n    amount: 1.5\n"},
		{name: "threshold unknown column", doc: "dataset: parcels\ncolumns:\n  amount: {type: number}\nquality:\n  max_null_fraction:\n    other: 0.5\n"},
		{name: "bad drift policy", doc: "dataset: parcels\ncolumns:\n  amount: {type: number}\ndrift_policy: panic\n"},
		{name: "min above max", doc: "dataset: parcels\ncolumns:\n  amount: {type: number, min: 10, max: 1}\n"},
		{name: "unknown top-level key", doc: "dataset: parcels\ncolumns:\n  amount: {type: number}\nextras: true\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := contract.Parse([]byte(tc.doc)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			} else if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseDefaultsColumnType(t *testing.T) {
	c, err := contract.Parse([]byte("dataset: parcels\ncolumns:\n  notes:\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Columns["notes"].Type != contract.TypeString {
		t.Fatalf("default type = %q", c.Columns["notes"].Type)
	}
}

func TestLoadFingerprintIsStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parcels.yaml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("write contract: %v", err)
	}

	first, err := contract.Load(dir, "Parcels")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := contract.Load(dir, "parcels")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.SHA256 == "" || first.SHA256 != second.SHA256 {
		t.Fatalf("fingerprints differ: %q vs %q", first.SHA256, second.SHA256)
	}
	if first.Path != path {
		t.Fatalf("path = %q, want %q", first.Path, path)
	}

	// Any byte change to the document changes the fingerprint.
	if err := os.WriteFile(path, []byte(sampleDoc+"\n# revised\n"), 0o644); err != nil {
		t.Fatalf("rewrite contract: %v", err)
	}
	third, err := contract.Load(dir, "parcels")
	if err != nil {
		t.Fatalf("Load after edit: %v", err)
	}
	if third.SHA256 == first.SHA256 {
		t.Fatal("fingerprint should change when the document changes")
	}
}

func TestLoadMissingContract(t *testing.T) {
	_, err := contract.Load(t.TempDir(), "parcels")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRejectsDatasetMismatch(t *testing.T) {
	dir := t.TempDir()
	doc := strings.Replace(sampleDoc, "dataset: parcels", "dataset: other", 1)
	if err := os.WriteFile(filepath.Join(dir, "parcels.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write contract: %v", err)
	}
	if _, err := contract.Load(dir, "parcels"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDriftPolicyOrDefault(t *testing.T) {
	c := &contract.Contract{DriftPolicy: ""}
	if got := c.DriftPolicyOrDefault(contract.DriftWarn); got != contract.DriftWarn {
		t.Fatalf("fallback = %q", got)
	}
	c.DriftPolicy = contract.DriftAllow
	if got := c.DriftPolicyOrDefault(contract.DriftWarn); got != contract.DriftAllow {
		t.Fatalf("declared policy = %q", got)
	}
}
