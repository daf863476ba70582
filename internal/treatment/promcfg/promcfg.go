// Package promcfg edits a Prometheus YAML configuration file's global
// scrape_interval and triggers Prometheus's runtime config reload endpoint.
// Ported from original_source/oxn/treatments.py's PrometheusIntervalTreatment.
package promcfg

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a minimal parse of a prometheus.yml sufficient to read/write
// global.scrape_interval while keeping every other key's value. Save
// re-marshals the map, so key order, comments and formatting are not kept.
type Config struct {
	raw map[string]interface{}
}

// Load reads and parses a Prometheus config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("promcfg: read %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("promcfg: parse %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return &Config{raw: raw}, nil
}

// ScrapeInterval reads global.scrape_interval, or "" if unset.
func (c *Config) ScrapeInterval() string {
	global, _ := c.raw["global"].(map[string]interface{})
	if global == nil {
		return ""
	}
	s, _ := global["scrape_interval"].(string)
	return s
}

// SetScrapeInterval sets global.scrape_interval, creating the global
// section if it doesn't exist.
func (c *Config) SetScrapeInterval(interval string) {
	global, ok := c.raw["global"].(map[string]interface{})
	if !ok {
		global = map[string]interface{}{}
		c.raw["global"] = global
	}
	global["scrape_interval"] = interval
}

// Save writes the config back to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c.raw)
	if err != nil {
		return fmt.Errorf("promcfg: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Reload POSTs to Prometheus's /-/reload endpoint to pick up the rewritten
// config file without a restart, matching the original's bare
// requests.post call — no retry policy applied, as this endpoint is
// expected to be locally reachable during the experiment.
func Reload(ctx context.Context, httpClient *http.Client, baseURL string) error {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/-/reload", nil)
	if err != nil {
		return fmt.Errorf("promcfg: build reload request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("promcfg: reload %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("promcfg: reload %s returned %d", baseURL, resp.StatusCode)
	}
	return nil
}
