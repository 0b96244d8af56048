// Package textutil provides small text helpers for file names and display.
//
// The primary use cases are:
//   - Sanitizing pack names before they are used as file names
//   - Building the ASCII fallback for download file names
//   - Title-casing enum values for CLI tables
package textutil
