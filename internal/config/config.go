// Package config loads engine-level settings (backend base URLs and
// timeouts, retry policy, store directory, load generator host, sidecar
// image) distinct from the experiment Spec itself. Adapted from the
// teacher's pkg/config/config.go: YAML unmarshal over a defaulted struct,
// after os.ExpandEnv, then two named environment-variable overrides
// (OXN_PROMETHEUS_URL, OXN_JAEGER_URL), the precedence order the teacher
// uses for PROMETHEUS_URL.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is oxn's engine-level configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	Docker    DockerConfig    `yaml:"docker"`
	Prometheus BackendConfig  `yaml:"prometheus"`
	Jaeger    BackendConfig   `yaml:"jaeger"`
	Retry     RetryConfig     `yaml:"retry"`
	Store     StoreConfig     `yaml:"store"`
	Loadgen   LoadgenConfig   `yaml:"loadgen"`
}

// LoadgenConfig configures the load generator's target host. The original
// LoadGenerator hardcodes FastHttpUser.host = "http://localhost:8080";
// oxn keeps that exact default but exposes it as an override point since
// nothing else in the engine config depends on the hardcoded value.
type LoadgenConfig struct {
	Host string `yaml:"host"`
}

// DockerConfig contains Docker / sidecar settings.
type DockerConfig struct {
	SidecarImage string `yaml:"sidecar_image"`
}

// BackendConfig contains a metric/trace backend's base URL and timeout.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig is the fixed backoff policy from spec.md §9: 0.1s interval,
// up to 5 retries, on 500/502/503/504.
type RetryConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// StoreConfig configures the Prefix-Indexed Store's on-disk location.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns oxn's default configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Docker: DockerConfig{
			SidecarImage: "oxn/netem-sidecar:latest",
		},
		Prometheus: BackendConfig{
			URL:     "http://localhost:9090",
			Timeout: 30 * time.Second,
		},
		Jaeger: BackendConfig{
			URL:     "http://localhost:16686",
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			Interval:   100 * time.Millisecond,
			MaxRetries: 5,
		},
		Store: StoreConfig{
			Dir: "./oxn-store",
		},
		Loadgen: LoadgenConfig{
			Host: "http://localhost:8080",
		},
	}
}

// Load reads engine config from path, falling back to defaults if the file
// is absent. OXN_PROMETHEUS_URL and OXN_JAEGER_URL, if set, override the
// file's values, mirroring the teacher's PROMETHEUS_URL-env-wins precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = "oxn.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OXN_PROMETHEUS_URL"); v != "" {
		cfg.Prometheus.URL = v
	}
	if v := os.Getenv("OXN_JAEGER_URL"); v != "" {
		cfg.Jaeger.URL = v
	}
}

// Validate checks the config is well-formed.
func (c *Config) Validate() error {
	if c.Docker.SidecarImage == "" {
		return fmt.Errorf("config: docker.sidecar_image is required")
	}
	if c.Retry.MaxRetries == 0 {
		return fmt.Errorf("config: retry.max_retries must be at least 1")
	}
	return nil
}
