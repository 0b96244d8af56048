// Package main hosts the sipc CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP server, compresses packs locally,
// lists the pack registry, checks external dependencies, and scaffolds
// configuration. It centralizes configuration resolution so subcommands can
// focus on output instead of wiring.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
