// Package pack reads and writes the ZIP container of a SIGame pack.
//
// The reader resolves manifest references by attempting to open each candidate
// entry in turn, so a damaged or missing entry is simply "not found". The
// writer deduplicates entries by name, which is what makes content-addressed
// assets shared between questions cost nothing extra.
package pack
