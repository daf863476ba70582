package spec

import (
	"strings"
	"testing"
)

const validSpec = `
experiment:
  responses:
    - name: latency
      type: metric
      description:
        metric_name: http_request_duration_seconds
        left_window: 5s
        right_window: 5s
  sue:
    compose: ${COMPOSE_PATH}
  loadgen:
    run_time: 30s
    tasks:
      - endpoint: /
        verb: get
        weight: 1
  treatments:
    - delay:
        action: NetworkDelay
        params:
          duration: 10s
          delay_time: 100ms
`

func TestParseValidSpec(t *testing.T) {
	p := New(map[string]string{"COMPOSE_PATH": "docker-compose.yaml"})
	s, err := p.Parse([]byte(validSpec))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Experiment.SUE.Compose != "docker-compose.yaml" {
		t.Errorf("SUE.Compose = %q, want substituted value", s.Experiment.SUE.Compose)
	}
	if len(s.Experiment.Treatments) != 1 {
		t.Fatalf("Treatments = %d entries, want 1", len(s.Experiment.Treatments))
	}
	if s.Experiment.Treatments[0].Name != "delay" {
		t.Errorf("Treatments[0].Name = %q, want %q", s.Experiment.Treatments[0].Name, "delay")
	}
	if s.Experiment.Treatments[0].Action != "NetworkDelay" {
		t.Errorf("Treatments[0].Action = %q, want %q", s.Experiment.Treatments[0].Action, "NetworkDelay")
	}
}

func TestParseSubstitutesFromEnv(t *testing.T) {
	t.Setenv("COMPOSE_PATH", "from-env.yaml")
	p := New(nil)
	s, err := p.Parse([]byte(validSpec))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Experiment.SUE.Compose != "from-env.yaml" {
		t.Errorf("SUE.Compose = %q, want env-substituted value", s.Experiment.SUE.Compose)
	}
}

func TestParseMissingRequiredFields(t *testing.T) {
	p := New(nil)
	_, err := p.Parse([]byte("experiment:\n  sue:\n    compose: x.yaml\n"))
	if err == nil {
		t.Fatal("Parse() with missing responses/loadgen should error")
	}
	if !strings.Contains(err.Error(), "Can't validate experiment spec") {
		t.Errorf("Parse() error = %q, want it to contain %q", err.Error(), "Can't validate experiment spec")
	}
}

func TestParseInvalidResponseType(t *testing.T) {
	p := New(map[string]string{"COMPOSE_PATH": "x.yaml"})
	bad := `
experiment:
  responses:
    - name: latency
      type: bogus
  sue:
    compose: ${COMPOSE_PATH}
  loadgen:
    run_time: 30s
    tasks:
      - endpoint: /
        verb: get
`
	if _, err := p.Parse([]byte(bad)); err == nil {
		t.Error("Parse() with an invalid response type should error")
	}
}

func TestParseOverrides(t *testing.T) {
	p := New(nil)
	got, err := p.ParseOverrides([]string{"a=1", "b=2"})
	if err != nil {
		t.Fatalf("ParseOverrides() error = %v", err)
	}
	if got["a"] != "1" || got["b"] != "2" {
		t.Errorf("ParseOverrides() = %v, want map[a:1 b:2]", got)
	}

	if _, err := p.ParseOverrides([]string{"no-equals-sign"}); err == nil {
		t.Error("ParseOverrides() with a malformed entry should error")
	}
}
