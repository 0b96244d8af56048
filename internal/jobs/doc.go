// Package jobs accepts uploaded packs and runs their compression in the
// background.
//
// Submit stores the upload under its content hash, records it in the pack
// registry, and starts a job that publishes to the session channel named by
// the caller's token. Jobs are detached from the submitting request: a
// client going away never cancels one. A buffered-channel semaphore caps how
// many run at once, and jobs for the same pack hash run one after another so
// they never share a partial output file.
//
// RunLocal drives the same compressor for the CLI without touching the
// registry.
package jobs
