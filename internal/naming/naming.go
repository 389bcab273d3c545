// Package naming centralizes rules for user-controlled identifiers that become
// directory names, contract filenames, and database identifiers. The rules are
// strict because dataset names end up inside dynamically constructed SQL
// identifiers (curated_<dataset>) and filesystem paths.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"eventpulse/internal/services"
)

// identifierPattern admits lowercase letters, digits, and underscore, starting
// with a letter, at most 63 characters. This keeps identifiers safe for SQLite
// table names and POSIX paths without quoting.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// NormalizeDataset lowercases and validates a dataset name. Mixed-case input
// is accepted; anything that does not match the strict identifier pattern
// after normalization is rejected.
func NormalizeDataset(dataset string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(dataset))
	if normalized == "" {
		return "", services.Wrap(services.ErrValidation, "naming", "dataset", "dataset is required", nil)
	}
	if !identifierPattern.MatchString(normalized) {
		return "", services.Wrap(services.ErrValidation, "naming", "dataset",
			fmt.Sprintf("invalid dataset name %q: use lowercase letters, numbers, underscore; start with a letter; max 63 chars", dataset), nil)
	}
	return normalized, nil
}

// ValidColumn reports whether name is an acceptable contract column name.
// Column names follow the same identifier pattern as datasets.
func ValidColumn(name string) bool {
	return identifierPattern.MatchString(name)
}

// CuratedTable returns the curated table name for a normalized dataset.
func CuratedTable(dataset string) string {
	return "curated_" + dataset
}
