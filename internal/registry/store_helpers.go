package registry

import (
	"database/sql"
	"errors"
	"time"
)

const ingestionColumns = "id, dataset, source, filename, file_ext, sha256, raw_path, version_token, status, error, replay_of, processing_attempts, processing_started_at, processing_heartbeat_at, processed_at, created_at, updated_at"

func scanIngestion(scanner interface{ Scan(dest ...any) error }) (*Ingestion, error) {
	var (
		id           string
		dataset      string
		source       sql.NullString
		filename     sql.NullString
		fileExt      sql.NullString
		sha          string
		rawPath      string
		versionToken sql.NullString
		statusStr    string
		errMessage   sql.NullString
		replayOf     sql.NullString
		attempts     int
		startedRaw   sql.NullString
		heartbeatRaw sql.NullString
		processedRaw sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&dataset,
		&source,
		&filename,
		&fileExt,
		&sha,
		&rawPath,
		&versionToken,
		&statusStr,
		&errMessage,
		&replayOf,
		&attempts,
		&startedRaw,
		&heartbeatRaw,
		&processedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Ingestion{
		ID:                 id,
		Dataset:            dataset,
		Source:             source.String,
		Filename:           filename.String,
		FileExt:            fileExt.String,
		SHA256:             sha,
		RawPath:            rawPath,
		VersionToken:       versionToken.String,
		Status:             Status(statusStr),
		Error:              errMessage.String,
		ReplayOf:           replayOf.String,
		ProcessingAttempts: attempts,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	record.ProcessingStarted = parseNullableTime(startedRaw)
	record.ProcessingHeartbeat = parseNullableTime(heartbeatRaw)
	record.ProcessedAt = parseNullableTime(processedRaw)

	return record, nil
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeFormat)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
