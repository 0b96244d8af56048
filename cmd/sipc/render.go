package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"sipc/internal/events"
	"sipc/internal/logging"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// renderEvent formats one progress event as a human-readable line. Done
// renders as an empty string.
func renderEvent(e events.Event, colorize bool) string {
	switch e.Type {
	case events.TypeInfo:
		if e.Info == nil {
			return ""
		}
		return paint(ansiBlue, fmt.Sprintf("Pack v%d, %s, %d media files",
			e.Info.Version, logging.FormatBytes(e.Info.Size), e.Info.ItemsCount), colorize)
	case events.TypeResult:
		return paint(ansiGreen, "Result: "+e.Result, colorize)
	case events.TypeLog:
		if e.Log == nil {
			return ""
		}
		entry := e.Log
		switch entry.Event {
		case events.LogCompressed:
			return fmt.Sprintf("%s %s/%s -> %s (%s -> %s)",
				paint(ansiGreen, "OK  ", colorize), entry.Kind, entry.OldName, entry.NewName,
				logging.FormatBytes(entry.OldSize), logging.FormatBytes(entry.NewSize))
		case events.LogError:
			if entry.Kind == "" {
				return paint(ansiRed, "FAIL "+entry.Message, colorize)
			}
			return fmt.Sprintf("%s %s/%s: %s", paint(ansiYellow, "WARN", colorize), entry.Kind, entry.OldName, entry.Message)
		default:
			return "     " + entry.Message
		}
	default:
		return ""
	}
}
