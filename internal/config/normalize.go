package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeCompress()
	c.normalizeJobs()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SIPC_STORAGE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StorageDir = value
	}
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.StorageDir, err = expandPath(strings.TrimSpace(c.Paths.StorageDir)); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("SIPC_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.AllowedOrigins = origins
	if c.Server.PingInterval <= 0 {
		c.Server.PingInterval = defaultPingInterval
	}
}

func (c *Config) normalizeCompress() {
	c.Compress.FFmpegBinary = strings.TrimSpace(c.Compress.FFmpegBinary)
	if c.Compress.FFmpegBinary == "" {
		c.Compress.FFmpegBinary = defaultFFmpegBinary
	}
	c.Compress.AudioBitrate = strings.ToLower(strings.TrimSpace(c.Compress.AudioBitrate))
	if c.Compress.AudioBitrate == "" {
		c.Compress.AudioBitrate = defaultAudioBitrate
	}
	if c.Compress.ImageMaxDimension == 0 {
		c.Compress.ImageMaxDimension = defaultImageMaxDimension
	}
	if c.Compress.TranscodeTimeout == 0 {
		c.Compress.TranscodeTimeout = defaultTranscodeTimeout
	}
	if c.Compress.VideoMaxWidth == 0 {
		c.Compress.VideoMaxWidth = defaultVideoMaxWidth
	}
	if c.Compress.VideoMaxHeight == 0 {
		c.Compress.VideoMaxHeight = defaultVideoMaxHeight
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.MaxConcurrent == 0 {
		c.Jobs.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Jobs.SessionTTL == 0 {
		c.Jobs.SessionTTL = defaultSessionTTL
	}
	if c.Jobs.SweepInterval == 0 {
		c.Jobs.SweepInterval = defaultSweepInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
