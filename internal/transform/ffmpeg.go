package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"sipc/internal/services"
)

const (
	defaultTranscodeTimeout = 300 * time.Second
	killGrace               = 5 * time.Second
	stderrTailLimit         = 512
)

// FFmpeg transcodes video and audio by piping bytes through an ffmpeg process.
type FFmpeg struct {
	Binary       string
	Timeout      time.Duration
	VideoCRF     int
	VideoWidth   int
	VideoHeight  int
	AudioBitrate string
}

// Video transcodes to fragmented H.264/AAC MP4 bounded by VideoWidth×VideoHeight.
func (f *FFmpeg) Video(ctx context.Context, data []byte) ([]byte, error) {
	return f.run(ctx, "video", f.VideoArgs(), data)
}

// Audio transcodes to MP3 at AudioBitrate.
func (f *FFmpeg) Audio(ctx context.Context, data []byte) ([]byte, error) {
	return f.run(ctx, "audio", f.AudioArgs(), data)
}

// VideoArgs returns the ffmpeg argument list for video transcodes.
func (f *FFmpeg) VideoArgs() []string {
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,setsar=1,scale=trunc(iw/2)*2:trunc(ih/2)*2",
		f.VideoWidth, f.VideoHeight)
	return []string{
		"-i", "pipe:",
		"-f", "mp4",
		"-movflags", "isml+frag_keyframe+empty_moov+default_base_moof",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", f.AudioBitrate,
		"-preset", "slow",
		"-profile:v", "main",
		"-vf", scale,
		"-crf", strconv.Itoa(f.VideoCRF),
		"-loglevel", "error",
		"pipe:",
	}
}

// AudioArgs returns the ffmpeg argument list for audio transcodes.
func (f *FFmpeg) AudioArgs() []string {
	return []string{
		"-i", "pipe:",
		"-f", "mp3",
		"-b:a", f.AudioBitrate,
		"-loglevel", "error",
		"pipe:",
	}
}

func (f *FFmpeg) run(ctx context.Context, operation string, args []string, input []byte) ([]byte, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTranscodeTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace
	isolateProcessGroup(cmd)

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, services.Wrap(services.ErrTimeout, "transform", operation, fmt.Sprintf("ffmpeg exceeded %s", timeout), runCtx.Err())
	}
	if ctx.Err() != nil {
		return nil, services.Wrap(services.ErrTransient, "transform", operation, "cancelled", ctx.Err())
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transform", operation, stderrTail(stderr.Bytes()), err)
	}
	if stdout.Len() == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transform", operation, "ffmpeg produced no output", nil)
	}
	return stdout.Bytes(), nil
}

func stderrTail(stderr []byte) string {
	text := strings.TrimSpace(string(stderr))
	if len(text) > stderrTailLimit {
		text = "..." + text[len(text)-stderrTailLimit:]
	}
	if text == "" {
		return "ffmpeg failed"
	}
	return text
}
