package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DatabasePath != "prepdeck.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Workers.Count != 4 {
		t.Errorf("Workers.Count = %d", cfg.Workers.Count)
	}
	if cfg.Groq.Model == "" || cfg.Gemini.Model == "" {
		t.Error("backend model defaults not populated")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PREPDECK_ADDR", ":9999")
	t.Setenv("PREPDECK_WORKERS", "8")
	t.Setenv("SERPER_API_KEY", "sk")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Workers.Count != 8 {
		t.Errorf("Workers.Count = %d", cfg.Workers.Count)
	}
	if cfg.Serper.APIKey != "sk" {
		t.Errorf("Serper.APIKey = %q", cfg.Serper.APIKey)
	}
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("addr: \":7070\"\npipeline:\n  job_timeout: 5m\n  max_attempts: 2\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Pipeline.JobTimeout != 5*time.Minute {
		t.Errorf("JobTimeout = %v", cfg.Pipeline.JobTimeout)
	}
	if cfg.Pipeline.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d", cfg.Pipeline.MaxAttempts)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
