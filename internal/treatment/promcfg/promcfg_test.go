package promcfg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePrometheusConfig = `
global:
  scrape_interval: 15s
scrape_configs:
  - job_name: sue
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prometheus.yml")
	if err := os.WriteFile(path, []byte(samplePrometheusConfig), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestScrapeInterval(t *testing.T) {
	cfg, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.ScrapeInterval(); got != "15s" {
		t.Errorf("ScrapeInterval() = %q, want %q", got, "15s")
	}
}

func TestSetScrapeIntervalAndSave(t *testing.T) {
	path := writeSample(t)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.SetScrapeInterval("30s")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if got := reloaded.ScrapeInterval(); got != "30s" {
		t.Errorf("ScrapeInterval() after round-trip = %q, want %q", got, "30s")
	}
}

func TestSetScrapeIntervalOnEmptyConfigCreatesGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.SetScrapeInterval("10s")
	if got := cfg.ScrapeInterval(); got != "10s" {
		t.Errorf("ScrapeInterval() = %q, want %q", got, "10s")
	}
}

func TestReload(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Reload(context.Background(), srv.Client(), srv.URL); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if gotPath != "/-/reload" {
		t.Errorf("Reload() hit path %q, want %q", gotPath, "/-/reload")
	}
}

func TestReloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Reload(context.Background(), srv.Client(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Reload() error = %v, want an error mentioning status 500", err)
	}
}
