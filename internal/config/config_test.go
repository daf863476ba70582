package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Prometheus.URL != Default().Prometheus.URL {
		t.Errorf("Load() with a missing file diverged from Default()")
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxn.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\nprometheus:\n  url: http://prom:9090\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Prometheus.URL != "http://prom:9090" {
		t.Errorf("Prometheus.URL = %q, want %q", cfg.Prometheus.URL, "http://prom:9090")
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxn.yaml")
	if err := os.WriteFile(path, []byte("prometheus:\n  url: http://prom:9090\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("OXN_PROMETHEUS_URL", "http://overridden:9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Prometheus.URL != "http://overridden:9090" {
		t.Errorf("Prometheus.URL = %q, want env override to win", cfg.Prometheus.URL)
	}
}

func TestValidateRejectsEmptySidecarImage(t *testing.T) {
	cfg := Default()
	cfg.Docker.SidecarImage = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with empty sidecar image should error")
	}
}

func TestValidateRejectsZeroRetries(t *testing.T) {
	cfg := Default()
	cfg.Retry.MaxRetries = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero max_retries should error")
	}
}
