// Package manifest parses and rewrites the content.xml manifest of a SIGame
// pack.
//
// Two manifest generations exist. Version 4 marks media with <atom type=...>
// nodes and prefixes every media name with '@'; version 5 uses <item type=...>
// nodes with bare names. An Adapter hides those differences from the
// compressor: it lists references in a fixed order, proposes the archive
// entries a reference may live in, and rewrites a reference in place once the
// asset has a content-addressed name.
package manifest
