package naming_test

import (
	"errors"
	"strings"
	"testing"

	"eventpulse/internal/naming"
	"eventpulse/internal/services"
)

func TestNormalizeDataset(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "parcels", want: "parcels"},
		{name: "mixed case", input: "  Recorder_Sales ", want: "recorder_sales"},
		{name: "digits", input: "real_estate_2026", want: "real_estate_2026"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "leading digit", input: "2026_sales", wantErr: true},
		{name: "hyphen", input: "recorder-sales", wantErr: true},
		{name: "path traversal", input: "../etc/passwd", wantErr: true},
		{name: "too long", input: "a" + strings.Repeat("b", 63), wantErr: true},
		{name: "max length", input: "a" + strings.Repeat("b", 62), want: "a" + strings.Repeat("b", 62)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := naming.NormalizeDataset(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.input, got)
				}
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeDataset(%q): %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeDataset(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidColumn(t *testing.T) {
	for _, ok := range []string{"amount", "tax_year", "a"} {
		if !naming.ValidColumn(ok) {
			t.Fatalf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"", "Amount", "1st", "drop table", "col-name"} {
		if naming.ValidColumn(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestCuratedTable(t *testing.T) {
	if got := naming.CuratedTable("parcels"); got != "curated_parcels" {
		t.Fatalf("CuratedTable = %q", got)
	}
}
