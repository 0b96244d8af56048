package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCompress(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateCompress() error {
	if c.Compress.ImageMaxDimension < 16 {
		return errors.New("compress.image_max_dimension must be at least 16")
	}
	if c.Compress.WebPQuality < 1 || c.Compress.WebPQuality > 100 {
		return errors.New("compress.webp_quality must be between 1 and 100")
	}
	if c.Compress.TranscodeTimeout < 0 {
		return errors.New("compress.transcode_timeout must be positive")
	}
	if c.Compress.VideoCRF < 0 || c.Compress.VideoCRF > 51 {
		return errors.New("compress.video_crf must be between 0 and 51")
	}
	if c.Compress.VideoMaxWidth < 2 || c.Compress.VideoMaxHeight < 2 {
		return errors.New("compress.video_max_width and video_max_height must be at least 2")
	}
	if !strings.HasSuffix(c.Compress.AudioBitrate, "k") {
		return fmt.Errorf("compress.audio_bitrate must be expressed in kbit/s (e.g. 64k), got %q", c.Compress.AudioBitrate)
	}
	if c.Compress.CompressionLevel < 0 || c.Compress.CompressionLevel > 9 {
		return errors.New("compress.compression_level must be between 0 and 9")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.MaxConcurrent < 1 {
		return errors.New("jobs.max_concurrent must be at least 1")
	}
	if c.Jobs.SessionTTL < 0 || c.Jobs.SweepInterval < 0 {
		return errors.New("jobs.session_ttl and jobs.sweep_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
