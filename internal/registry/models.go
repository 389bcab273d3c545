package registry

import "time"

// Status is an ingestion lifecycle state.
type Status string

const (
	StatusReceived          Status = "RECEIVED"
	StatusProcessing        Status = "PROCESSING"
	StatusLoaded            Status = "LOADED"
	StatusFailedQuality     Status = "FAILED_QUALITY"
	StatusFailedDrift       Status = "FAILED_DRIFT"
	StatusFailedException   Status = "FAILED_EXCEPTION"
	StatusFailedMaxAttempts Status = "FAILED_MAX_ATTEMPTS"
)

// Terminal reports whether the status ends an ingestion's lifecycle.
// FAILED_EXCEPTION is terminal for the attempt but claimable again until the
// attempt cap is reached.
func (s Status) Terminal() bool {
	switch s {
	case StatusLoaded, StatusFailedQuality, StatusFailedDrift, StatusFailedMaxAttempts:
		return true
	default:
		return false
	}
}

// Claimable reports whether a worker may claim a record in this status.
func (s Status) Claimable() bool {
	return s == StatusReceived || s == StatusFailedException
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusLoaded,
		StatusFailedQuality, StatusFailedDrift, StatusFailedException, StatusFailedMaxAttempts:
		return true
	default:
		return false
	}
}

// Ingestion is one processing attempt of one raw artifact. Replays create new
// records; a record is never reused across replays.
type Ingestion struct {
	ID                 string
	Dataset            string
	Source             string
	Filename           string
	FileExt            string
	SHA256             string
	RawPath            string
	VersionToken       string
	Status             Status
	Error              string
	ReplayOf           string
	ProcessingAttempts int
	ProcessingStarted  *time.Time
	ProcessingHeartbeat *time.Time
	ProcessedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SchemaRecord is one distinct observed schema for a dataset. Append-only:
// repeat observations only bump LastSeenAt.
type SchemaRecord struct {
	ID          int64
	Dataset     string
	SchemaHash  string
	SchemaJSON  string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// QualityReportRecord stores the serialized validation outcome of an attempt.
type QualityReportRecord struct {
	IngestionID string
	OK          bool
	ReportJSON  string
	CreatedAt   time.Time
}

// LineageRecord stores the serialized lineage artifact of an attempt.
type LineageRecord struct {
	IngestionID  string
	ArtifactJSON string
	CreatedAt    time.Time
}

// AuditEvent is an append-only log entry. IngestionID is nulled if the
// referenced record is pruned; the event itself survives.
type AuditEvent struct {
	ID          int64
	EventType   string
	Actor       string
	Dataset     string
	IngestionID string
	Details     string
	CreatedAt   time.Time
}

// Stats summarizes registry contents for health and status surfaces.
type Stats struct {
	Total    int64
	ByStatus map[Status]int64
}

// DatasetSummary aggregates per-dataset ingestion history.
type DatasetSummary struct {
	Dataset       string
	Ingestions    int64
	Loaded        int64
	Failed        int64
	LastIngestion *time.Time
}
