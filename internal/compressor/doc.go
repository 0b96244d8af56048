// Package compressor rewrites a whole pack: it resolves every media reference
// in the manifest, optimises the asset, stores it under a content-addressed
// name, rewrites the reference, and emits progress events in a fixed order.
//
// Item-level problems (missing entries, failed transcodes) never abort a job;
// they become error events and the original bytes are carried over. Only
// archive-level failures end a job early, and even then the stream is
// terminated with Done.
package compressor
