package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckFFmpegReportsVersion(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	script := []byte("#!/bin/sh\necho 'ffmpeg version 7.1 Copyright'\necho 'built with gcc'\n")
	if err := os.WriteFile(ffmpeg, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFmpeg(context.Background(), ffmpeg)
	if !status.Available {
		t.Fatalf("expected ffmpeg to be available, got detail %q", status.Detail)
	}
	if status.Detail != "ffmpeg version 7.1 Copyright" {
		t.Fatalf("unexpected detail %q", status.Detail)
	}
}

func TestCheckFFmpegFailingProbe(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFmpeg(context.Background(), ffmpeg)
	if status.Available {
		t.Fatal("expected failing probe to mark ffmpeg unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail for failing probe")
	}
}

func TestCheckFFmpegMissing(t *testing.T) {
	status := CheckFFmpeg(context.Background(), "clearly-not-present-ffmpeg")
	if status.Available || status.Name != "FFmpeg" {
		t.Fatalf("unexpected status: %#v", status)
	}
}
