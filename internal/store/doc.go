// Package store persists the pack registry in SQLite.
//
// Each uploaded pack is keyed by the content hash of its original bytes and
// remembers the display name it was uploaded under, so downloads can be named
// after it. The record also tracks the lifecycle of the most recent
// compression job for that pack (pending, processing, completed, failed).
//
// The database is transient bookkeeping next to the stored archives rather
// than an archive of its own. Schema changes bump the version in schema.go;
// operators delete the database to adopt the new schema.
package store
