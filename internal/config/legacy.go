package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// legacyConfig mirrors the flat YAML file used by earlier deployments.
type legacyConfig struct {
	StoragePath string `yaml:"storage_path"`
	LogPath     string `yaml:"log_path"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
}

func isLegacyPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func loadLegacy(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	var legacy legacyConfig
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("parse legacy config: %w", err)
	}
	if legacy.StoragePath != "" {
		cfg.Paths.StorageDir = legacy.StoragePath
	}
	if legacy.LogPath != "" {
		cfg.Paths.LogDir = legacy.LogPath
	}
	if legacy.Host != "" || legacy.Port != 0 {
		host, port := legacy.Host, legacy.Port
		if host == "" {
			host = "127.0.0.1"
		}
		if port == 0 {
			port = 8000
		}
		cfg.Server.Bind = fmt.Sprintf("%s:%d", host, port)
	}
	return nil
}
