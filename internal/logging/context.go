package logging

import (
	"context"
	"log/slog"

	"sipc/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for compression job identifiers.
	FieldJobID = "job_id"
	// FieldToken is the standardized structured logging key for session tokens.
	FieldToken = "token"
	// FieldPackHash is the standardized structured logging key for uploaded pack hashes.
	FieldPackHash = "pack_hash"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldError carries the error text of a failed operation.
	FieldError = "error"
	// FieldErrorKind carries the classified error marker (timeout, decode, ...).
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if token, ok := services.TokenFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldToken, token))
	}
	if hash, ok := services.PackHashFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPackHash, hash))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
