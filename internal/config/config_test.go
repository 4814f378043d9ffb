package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not error: %v", err)
	}

	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("http address default = %q", cfg.HTTPAddress)
	}
	if cfg.HistoryFile != filepath.Join("data", "Workout_History.csv") {
		t.Fatalf("history file default = %q", cfg.HistoryFile)
	}
	if cfg.DATFile != filepath.Join("data", "AARON.DAT") {
		t.Fatalf("dat file default = %q", cfg.DATFile)
	}
	if cfg.LogMaxSizeMB != 100 || cfg.LogMaxBackups != 5 {
		t.Fatalf("log rotation defaults = %d/%d", cfg.LogMaxSizeMB, cfg.LogMaxBackups)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Fatalf("upload cap default = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "http_address: \":9090\"\ndata_dir: /var/lib/schwinn\nlog_max_backups: 3\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.HTTPAddress != ":9090" {
		t.Fatalf("http address = %q", cfg.HTTPAddress)
	}
	if cfg.DATFile != filepath.Join("/var/lib/schwinn", "AARON.DAT") {
		t.Fatalf("dat file should derive from data_dir, got %q", cfg.DATFile)
	}
	if cfg.LogMaxBackups != 3 {
		t.Fatalf("log max backups = %d", cfg.LogMaxBackups)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http_address: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTP_ADDRESS", ":7070")
	t.Setenv("HISTORY_FILE", "/tmp/history.csv")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.HTTPAddress != ":7070" {
		t.Fatalf("env override lost, http address = %q", cfg.HTTPAddress)
	}
	if cfg.HistoryFile != "/tmp/history.csv" {
		t.Fatalf("history file = %q", cfg.HistoryFile)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Fatalf("upload cap = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n:::"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
