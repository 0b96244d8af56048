package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sipc/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStorage := filepath.Join(tempHome, ".local", "share", "sipc", "storage")
	if cfg.Paths.StorageDir != wantStorage {
		t.Fatalf("unexpected storage dir: got %q want %q", cfg.Paths.StorageDir, wantStorage)
	}
	if cfg.Server.Bind != "127.0.0.1:8000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Compress.ImageMaxDimension != 800 {
		t.Fatalf("expected image max dimension 800, got %d", cfg.Compress.ImageMaxDimension)
	}
	if cfg.TranscodeTimeout() != 300*time.Second {
		t.Fatalf("unexpected transcode timeout: %s", cfg.TranscodeTimeout())
	}
	if cfg.Compress.CompressionLevel != 9 {
		t.Fatalf("expected compression level 9, got %d", cfg.Compress.CompressionLevel)
	}
	if cfg.DatabasePath() != filepath.Join(wantStorage, "db.sipc") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := struct {
		Paths    config.Paths    `toml:"paths"`
		Server   config.Server   `toml:"server"`
		Compress config.Compress `toml:"compress"`
		Logging  config.Logging  `toml:"logging"`
	}{
		Paths:    config.Paths{StorageDir: "~/packs"},
		Server:   config.Server{Bind: "0.0.0.0:9000", MaxUploadMB: 64, AllowedOrigins: []string{" https://sigame.example ", ""}},
		Compress: config.Compress{WebPQuality: 60, AudioBitrate: " 96K ", CompressionLevel: 6},
		Logging:  config.Logging{Format: "JSON", Level: "Debug"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.StorageDir != filepath.Join(tempHome, "packs") {
		t.Fatalf("unexpected storage dir: %q", cfg.Paths.StorageDir)
	}
	if cfg.MaxUploadBytes() != 64<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://sigame.example" {
		t.Fatalf("unexpected origins: %#v", cfg.Server.AllowedOrigins)
	}
	if cfg.Compress.AudioBitrate != "96k" {
		t.Fatalf("expected normalized bitrate, got %q", cfg.Compress.AudioBitrate)
	}
	if cfg.Compress.ImageMaxDimension != 800 {
		t.Fatalf("expected default image dimension to survive partial override, got %d", cfg.Compress.ImageMaxDimension)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lower-cased logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadLegacyYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	storage := filepath.Join(dir, "legacy-storage")
	content := "storage_path: " + storage + "\nport: 8080\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected legacy config to exist")
	}
	if cfg.Paths.StorageDir != storage {
		t.Fatalf("unexpected storage dir: %q", cfg.Paths.StorageDir)
	}
	if cfg.Server.Bind != "127.0.0.1:8080" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	storage := filepath.Join(t.TempDir(), "env-storage")
	t.Setenv("SIPC_STORAGE_DIR", storage)
	t.Setenv("SIPC_BIND", "127.0.0.1:9999")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.StorageDir != storage {
		t.Fatalf("expected env storage dir, got %q", cfg.Paths.StorageDir)
	}
	if cfg.Server.Bind != "127.0.0.1:9999" {
		t.Fatalf("expected env bind, got %q", cfg.Server.Bind)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"bind":        func(c *config.Config) { c.Server.Bind = "nope" },
		"webp":        func(c *config.Config) { c.Compress.WebPQuality = 101 },
		"level":       func(c *config.Config) { c.Compress.CompressionLevel = 12 },
		"bitrate":     func(c *config.Config) { c.Compress.AudioBitrate = "64000" },
		"concurrency": func(c *config.Config) { c.Jobs.MaxConcurrent = 0 },
		"format":      func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[compress]") {
		t.Fatalf("sample config missing compress section")
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
