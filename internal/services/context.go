package services

import "context"

type contextKey string

const (
	ingestionIDKey contextKey = "ingestion_id"
	datasetKey     contextKey = "dataset"
	stageKey       contextKey = "stage"
	requestIDKey   contextKey = "request_id"
)

// WithIngestionID annotates context with the ingestion record identifier.
func WithIngestionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ingestionIDKey, id)
}

// IngestionIDFromContext extracts the ingestion identifier if present.
func IngestionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(ingestionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDataset annotates context with the dataset name.
func WithDataset(ctx context.Context, dataset string) context.Context {
	if dataset == "" {
		return ctx
	}
	return context.WithValue(ctx, datasetKey, dataset)
}

// DatasetFromContext returns the dataset name if present.
func DatasetFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(datasetKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
