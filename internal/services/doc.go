// Package services provides shared error classification and context plumbing
// used across the ingestion pipeline. Sentinel errors tag failures so callers
// can map them onto terminal ingestion statuses without string matching.
package services
