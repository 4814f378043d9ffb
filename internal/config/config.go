// Package config centralises configuration for the dashboard and CLI.
// Values come from an optional YAML file and can be overridden per-key
// with environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress    string `yaml:"http_address,omitempty"`
	DataDir        string `yaml:"data_dir,omitempty"`
	DATFile        string `yaml:"dat_file,omitempty"`
	HistoryFile    string `yaml:"history_file,omitempty"`
	LogFile        string `yaml:"log_file,omitempty"`
	LogMaxSizeMB   int    `yaml:"log_max_size_mb,omitempty"`
	LogMaxBackups  int    `yaml:"log_max_backups,omitempty"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes,omitempty"`
}

// DefaultConfigPath returns the config file path used when no --config
// flag is given.
func DefaultConfigPath() string {
	return "config.yaml"
}

// Load reads the YAML file at path (a missing file is not an error),
// applies environment overrides, then fills remaining gaps with defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.HTTPAddress, "HTTP_ADDRESS")
	overrideString(&c.DataDir, "DATA_DIR")
	overrideString(&c.DATFile, "DAT_FILE")
	overrideString(&c.HistoryFile, "HISTORY_FILE")
	overrideString(&c.LogFile, "LOG_FILE")
	overrideInt(&c.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	overrideInt(&c.LogMaxBackups, "LOG_MAX_BACKUPS")
	overrideInt64(&c.MaxUploadBytes, "MAX_UPLOAD_BYTES")
}

func (c *Config) applyDefaults() {
	if c.HTTPAddress == "" {
		c.HTTPAddress = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.DATFile == "" {
		c.DATFile = filepath.Join(c.DataDir, "AARON.DAT")
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.DataDir, "Workout_History.csv")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join("logs", "app.log")
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups <= 0 {
		c.LogMaxBackups = 5
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 5 << 20
	}
}

func overrideString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*target = value
	}
}

func overrideInt(target *int, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}
