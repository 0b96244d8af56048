// Package logging assembles structured slog loggers and formatting helpers used
// across sipc.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so job code tags log lines with job IDs,
// session tokens, and pack hashes automatically. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
