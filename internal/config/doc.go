// Package config loads, normalizes, and validates sipc configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIPC_STORAGE_DIR. Older deployments that kept a flat config.yaml with a
// storage_path key are still accepted.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
