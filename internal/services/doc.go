// Package services defines shared utilities consumed by the compression
// pipeline and its transports.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, session tokens, and pack hashes for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (timeouts, external tool exits, decode errors) without string
//     matching.
package services
