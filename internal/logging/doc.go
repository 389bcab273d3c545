// Package logging builds slog loggers for the daemon and CLI. Two formats are
// supported: a compact console layout for interactive use and JSON for log
// shipping. Standardized field keys keep ingestion records traceable across
// components.
package logging
