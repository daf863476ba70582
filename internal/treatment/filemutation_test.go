package treatment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// These compile-time treatments all mutate a file on Inject and must
// restore its exact original bytes on Clean, key order/comments/formatting
// included — not a re-parsed-and-remarshaled equivalent.

func TestMetricsExportIntervalCleanRestoresExactBytes(t *testing.T) {
	original := "services:\n  web:\n    image: web:latest\n    # keep me\n"
	path := filepath.Join(t.TempDir(), "docker-compose.yaml")
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tr := NewMetricsExportInterval("otel-interval", Params{
		"compose_file": path,
		"service_name": "web",
		"interval":     "5s",
	})

	if err := tr.Inject(context.Background()); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	mutated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Inject() error = %v", err)
	}
	if string(mutated) == original {
		t.Fatal("Inject() did not mutate the compose file")
	}

	if err := tr.Clean(context.Background()); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Clean() error = %v", err)
	}
	if string(restored) != original {
		t.Errorf("Clean() restored %q, want the exact original bytes %q", restored, original)
	}
}

func TestProbabilisticSamplingCleanRestoresExactBytes(t *testing.T) {
	original := "receivers:\n  otlp: {}\n# trailing comment\n"
	path := filepath.Join(t.TempDir(), "otelcol_extras.yml")
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tr := NewProbabilisticSampling("probl", Params{
		"otelcol_extras": path,
		"percentage":     10,
		"seed":           42,
	})

	if err := tr.Inject(context.Background()); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	mutated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Inject() error = %v", err)
	}
	if string(mutated) == original {
		t.Fatal("Inject() did not mutate the otelcol extras file")
	}

	if err := tr.Clean(context.Background()); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Clean() error = %v", err)
	}
	if string(restored) != original {
		t.Errorf("Clean() restored %q, want the exact original bytes %q", restored, original)
	}
}

func TestPrometheusIntervalCleanRestoresExactBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	original := "global:\n  scrape_interval: 15s\n# trailing comment\nscrape_configs:\n  - job_name: sue\n"
	path := filepath.Join(t.TempDir(), "prometheus.yml")
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tr := NewPrometheusInterval("sampling", Params{
		"prometheus_config": path,
		"interval":          "30s",
		"prometheus_url":    srv.URL,
	})

	if err := tr.Inject(context.Background()); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	mutated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Inject() error = %v", err)
	}
	if string(mutated) == original {
		t.Fatal("Inject() did not mutate the prometheus config")
	}

	if err := tr.Clean(context.Background()); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Clean() error = %v", err)
	}
	if string(restored) != original {
		t.Errorf("Clean() restored %q, want the exact original bytes %q", restored, original)
	}
}
