// Package contract loads and validates per-dataset ingestion contracts.
//
// A contract is a YAML document stored as <contracts_dir>/<dataset>.yaml. It
// declares the expected columns with logical types, optional required/unique
// flags and numeric bounds, an optional primary key, per-column null-fraction
// thresholds, and the dataset's drift policy. Contracts are validated strictly
// on load; a malformed contract never reaches the pipeline.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"eventpulse/internal/naming"
	"eventpulse/internal/services"
)

// Logical column types. Every contract type alias canonicalizes to one of
// these four values, which are also the types schema inference emits.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeDatetime = "datetime"
)

// Drift policies a contract may declare.
const (
	DriftWarn  = "warn"
	DriftFail  = "fail"
	DriftAllow = "allow"
)

var typeAliases = map[string]string{
	"string":    TypeString,
	"text":      TypeString,
	"integer":   TypeNumber,
	"int":       TypeNumber,
	"number":    TypeNumber,
	"float":     TypeNumber,
	"double":    TypeNumber,
	"boolean":   TypeBoolean,
	"bool":      TypeBoolean,
	"datetime":  TypeDatetime,
	"timestamp": TypeDatetime,
}

var allowedDriftPolicies = map[string]struct{}{
	DriftWarn:  {},
	DriftFail:  {},
	DriftAllow: {},
}

// Column describes the expectations for a single contract column.
type Column struct {
	Type     string
	Required bool
	Unique   bool
	Min      *float64
	Max      *float64
}

// Contract is a validated dataset contract.
type Contract struct {
	Dataset         string
	Description     string
	PrimaryKey      string
	Columns         map[string]Column
	MaxNullFraction map[string]float64
	DriftPolicy     string
}

// LoadResult bundles a parsed contract with its provenance.
type LoadResult struct {
	Contract *Contract
	Path     string
	SHA256   string
}

// ColumnNames returns the contract's column names sorted lexicographically.
func (c *Contract) ColumnNames() []string {
	names := make([]string, 0, len(c.Columns))
	for name := range c.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DriftPolicyOrDefault returns the contract's drift policy, falling back to
// the supplied default when the contract does not declare one.
func (c *Contract) DriftPolicyOrDefault(fallback string) string {
	if c.DriftPolicy != "" {
		return c.DriftPolicy
	}
	return fallback
}

type columnDoc struct {
	Type     string   `yaml:"type"`
	Required *bool    `yaml:"required"`
	Unique   *bool    `yaml:"unique"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
}

type qualityDoc struct {
	MaxNullFraction map[string]float64 `yaml:"max_null_fraction"`
}

type contractDoc struct {
	Dataset     string                `yaml:"dataset"`
	Description string                `yaml:"description"`
	PrimaryKey  string                `yaml:"primary_key"`
	Columns     map[string]*columnDoc `yaml:"columns"`
	Quality     qualityDoc            `yaml:"quality"`
	DriftPolicy string                `yaml:"drift_policy"`
}

// Parse validates a contract document.
func Parse(raw []byte) (*Contract, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, services.Wrap(services.ErrValidation, "contract", "parse", "contract document is empty", nil)
	}

	var doc contractDoc
	decoder := yaml.NewDecoder(strings.NewReader(string(raw)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "contract", "parse", "invalid contract document", err)
	}

	dataset, err := naming.NormalizeDataset(doc.Dataset)
	if err != nil {
		return nil, err
	}

	if len(doc.Columns) == 0 {
		return nil, services.Wrap(services.ErrValidation, "contract", "parse", "contract must declare at least one column", nil)
	}

	columns := make(map[string]Column, len(doc.Columns))
	for name, spec := range doc.Columns {
		if !naming.ValidColumn(name) {
			return nil, services.Wrap(services.ErrValidation, "contract", "parse",
				fmt.Sprintf("invalid column name %q: use lowercase letters, numbers, underscore; start with a letter; max 63 chars", name), nil)
		}
		col := Column{Type: TypeString}
		if spec != nil {
			declared := strings.ToLower(strings.TrimSpace(spec.Type))
			if declared != "" {
				canonical, ok := typeAliases[declared]
				if !ok {
					return nil, services.Wrap(services.ErrValidation, "contract", "parse",
						fmt.Sprintf("unsupported type %q for column %q", spec.Type, name), nil)
				}
				col.Type = canonical
			}
			if spec.Required != nil {
				col.Required = *spec.Required
			}
			if spec.Unique != nil {
				col.Unique = *spec.Unique
			}
			col.Min = spec.Min
			col.Max = spec.Max
			if col.Min != nil && col.Max != nil && *col.Min > *col.Max {
				return nil, services.Wrap(services.ErrValidation, "contract", "parse",
					fmt.Sprintf("column %q min exceeds max", name), nil)
			}
		}
		columns[name] = col
	}

	primaryKey := strings.TrimSpace(doc.PrimaryKey)
	if primaryKey != "" {
		if _, ok := columns[primaryKey]; !ok {
			return nil, services.Wrap(services.ErrValidation, "contract", "parse",
				fmt.Sprintf("primary_key %q must be a declared column", primaryKey), nil)
		}
	}

	thresholds := make(map[string]float64, len(doc.Quality.MaxNullFraction))
	for col, threshold := range doc.Quality.MaxNullFraction {
		if _, ok := columns[col]; !ok {
			return nil, services.Wrap(services.ErrValidation, "contract", "parse",
				fmt.Sprintf("quality.max_null_fraction references unknown column %q", col), nil)
		}
		if threshold < 0 || threshold > 1 {
			return nil, services.Wrap(services.ErrValidation, "contract", "parse",
				fmt.Sprintf("quality.max_null_fraction for %q must be between 0 and 1", col), nil)
		}
		thresholds[col] = threshold
	}

	driftPolicy := strings.ToLower(strings.TrimSpace(doc.DriftPolicy))
	if driftPolicy != "" {
		if _, ok := allowedDriftPolicies[driftPolicy]; !ok {
			return nil, services.Wrap(services.ErrValidation, "contract", "parse",
				fmt.Sprintf("drift_policy must be one of warn, fail, allow (got %q)", doc.DriftPolicy), nil)
		}
	}

	return &Contract{
		Dataset:         dataset,
		Description:     strings.TrimSpace(doc.Description),
		PrimaryKey:      primaryKey,
		Columns:         columns,
		MaxNullFraction: thresholds,
		DriftPolicy:     driftPolicy,
	}, nil
}

// Load reads and validates the contract for a dataset from contractsDir.
// The returned SHA256 fingerprints the raw document bytes and is recorded in
// lineage so every load can be traced to the contract revision that gated it.
func Load(contractsDir, dataset string) (*LoadResult, error) {
	normalized, err := naming.NormalizeDataset(dataset)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(contractsDir, normalized+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "contract", "load",
				fmt.Sprintf("no contract for dataset %q at %s", normalized, path), nil)
		}
		return nil, services.Wrap(services.ErrTransient, "contract", "load", "read contract", err)
	}

	parsed, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Dataset != normalized {
		return nil, services.Wrap(services.ErrValidation, "contract", "load",
			fmt.Sprintf("contract at %s declares dataset %q", path, parsed.Dataset), nil)
	}

	sum := sha256.Sum256(raw)
	return &LoadResult{Contract: parsed, Path: path, SHA256: hex.EncodeToString(sum[:])}, nil
}
