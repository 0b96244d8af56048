package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	tokenKey     contextKey = "token"
	packHashKey  contextKey = "pack_hash"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the compression job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithToken annotates context with the session token the job reports to.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the session token if present.
func TokenFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(tokenKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPackHash annotates context with the uploaded pack's content hash.
func WithPackHash(ctx context.Context, hash string) context.Context {
	if hash == "" {
		return ctx
	}
	return context.WithValue(ctx, packHashKey, hash)
}

// PackHashFromContext returns the pack hash if present.
func PackHashFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(packHashKey).(string); ok && v != "" {
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
