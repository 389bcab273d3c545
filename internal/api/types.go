// Package api defines the wire types and registry-backed services shared by
// the HTTP server and the CLI.
package api

import "time"

// IngestionView is the external representation of a registry record.
type IngestionView struct {
	ID           string     `json:"id"`
	Dataset      string     `json:"dataset"`
	Source       string     `json:"source"`
	Filename     string     `json:"filename"`
	SHA256       string     `json:"sha256"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	ReplayOf     string     `json:"replay_of,omitempty"`
	Attempts     int        `json:"attempts"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	HeartbeatAt  *time.Time `json:"heartbeat_at,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// IngestionListResponse wraps a list of records.
type IngestionListResponse struct {
	Ingestions []IngestionView `json:"ingestions"`
}

// IngestionResponse wraps a single record.
type IngestionResponse struct {
	Ingestion IngestionView `json:"ingestion"`
}

// QualityReportResponse carries the stored validation outcome. Report is the
// raw report document.
type QualityReportResponse struct {
	IngestionID string `json:"ingestion_id"`
	OK          bool   `json:"ok"`
	Report      string `json:"report"`
	CreatedAt   string `json:"created_at"`
}

// LineageResponse carries the stored lineage artifact document.
type LineageResponse struct {
	IngestionID string `json:"ingestion_id"`
	Artifact    string `json:"artifact"`
	CreatedAt   string `json:"created_at"`
}

// AuditEventView is the external representation of an audit log entry.
type AuditEventView struct {
	ID          int64     `json:"id"`
	EventType   string    `json:"event_type"`
	Actor       string    `json:"actor,omitempty"`
	Dataset     string    `json:"dataset,omitempty"`
	IngestionID string    `json:"ingestion_id,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditListResponse wraps audit events.
type AuditListResponse struct {
	Events []AuditEventView `json:"events"`
}

// SchemaView is one observed schema version of a dataset.
type SchemaView struct {
	SchemaHash  string    `json:"schema_hash"`
	Schema      string    `json:"schema"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// SchemaHistoryResponse wraps a dataset's schema observations, newest first.
type SchemaHistoryResponse struct {
	Dataset string       `json:"dataset"`
	Schemas []SchemaView `json:"schemas"`
}

// DatasetView summarizes ingestion activity for one dataset.
type DatasetView struct {
	Dataset      string     `json:"dataset"`
	Total        int64      `json:"total"`
	Loaded       int64      `json:"loaded"`
	Failed       int64      `json:"failed"`
	CuratedRows  int64      `json:"curated_rows"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// DatasetListResponse wraps dataset summaries.
type DatasetListResponse struct {
	Datasets []DatasetView `json:"datasets"`
}

// DaemonStatus reports daemon runtime information.
type DaemonStatus struct {
	Running         bool             `json:"running"`
	PID             int              `json:"pid"`
	RegistryDBPath  string           `json:"registry_db_path"`
	WarehouseDBPath string           `json:"warehouse_db_path"`
	LockFilePath    string           `json:"lock_file_path"`
	StatusCounts    map[string]int64 `json:"status_counts"`
}

// ReclaimResponse reports the outcome of an on-demand reclaim sweep.
type ReclaimResponse struct {
	Reclaimed int64 `json:"reclaimed"`
}
