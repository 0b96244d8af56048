package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// FFmpegRequirement describes the transcoder used for video and audio assets.
func FFmpegRequirement(binary string) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Transcodes video and audio assets",
	}
}

// CheckFFmpeg reports whether binary resolves and, when it does, records the
// first line of its version banner as the detail.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	status := CheckBinaries([]Requirement{FFmpegRequirement(binary)})[0]
	if !status.Available {
		return status
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, status.Command, "-hide_banner", "-version").Output()
	if err != nil {
		status.Available = false
		status.Detail = "version probe failed: " + err.Error()
		return status
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	status.Detail = strings.TrimSpace(line)
	return status
}
