package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	LogDir     string `toml:"log_dir"`
}

// Server contains HTTP transport configuration.
type Server struct {
	Bind           string   `toml:"bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxUploadMB    int      `toml:"max_upload_mb"`
	PingInterval   int      `toml:"ping_interval"`
}

// Compress contains asset optimisation and archive settings.
type Compress struct {
	ImageMaxDimension int    `toml:"image_max_dimension"`
	WebPQuality       int    `toml:"webp_quality"`
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	TranscodeTimeout  int    `toml:"transcode_timeout"`
	VideoCRF          int    `toml:"video_crf"`
	VideoMaxWidth     int    `toml:"video_max_width"`
	VideoMaxHeight    int    `toml:"video_max_height"`
	AudioBitrate      string `toml:"audio_bitrate"`
	CompressionLevel  int    `toml:"compression_level"`
}

// Jobs contains background job and session settings.
type Jobs struct {
	MaxConcurrent int `toml:"max_concurrent"`
	SessionTTL    int `toml:"session_ttl"`
	SweepInterval int `toml:"sweep_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sipc.
//
// Configuration sections by subsystem:
//   - Paths: pack storage and log directories
//   - Server: bind address, CORS origins, upload limit, websocket keepalive
//   - Compress: image, video, audio, and archive settings
//   - Jobs: concurrency cap and session channel lifetime
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Server   Server   `toml:"server"`
	Compress Compress `toml:"compress"`
	Jobs     Jobs     `toml:"jobs"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sipc/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Files ending in .yaml or .yml are read with the
// legacy YAML layout.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if isLegacyPath(resolvedPath) {
			if err := loadLegacy(resolvedPath, &cfg); err != nil {
				return nil, "", false, err
			}
		} else if err := decodeTOML(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeTOML(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sipc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the storage and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TranscodeTimeout returns the hard limit for a single ffmpeg invocation.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Compress.TranscodeTimeout) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// PingInterval returns the websocket keepalive interval.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Server.PingInterval) * time.Second
}

// SessionTTL returns how long a finished, unclaimed session channel is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Jobs.SessionTTL) * time.Second
}

// SweepInterval returns the period of the abandoned-session sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Jobs.SweepInterval) * time.Second
}

// DatabasePath returns the location of the pack registry database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StorageDir, "db.sipc")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
