// Package testsupport holds helpers shared by package tests: a config
// builder rooted in temp directories, stub executables, a store opener, an
// in-memory pack builder, and an event recorder.
package testsupport
