package treatment

import (
	"context"
	"fmt"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/container"
	"github.com/nymphbox/oxn/internal/oxnerr"
)

// Pause suspends a service's container via SIGSTOP-equivalent Docker pause
// for Params["duration"], then unpauses on clean. Ported from
// original_source/oxn/treatments.py's PauseTreatment.
type Pause struct {
	name        string
	params      Params
	serviceName string
	duration    float64
	docker      *container.Client
}

// NewPause constructs a Pause treatment.
func NewPause(name string, params Params) *Pause {
	return &Pause{
		name:        name,
		params:      params,
		serviceName: getString(params, "service_name"),
		duration:    durationSeconds(params),
	}
}

func (t *Pause) Action() string { return "pause" }

// SetDockerClient injects the Docker client the orchestrator holds, so
// treatments don't each open their own connection.
func (t *Pause) SetDockerClient(c *container.Client) { t.docker = c }

func (t *Pause) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	if t.serviceName == "" {
		acc.Add("pause: parameter service_name has to be supplied")
	}
	duration := getString(t.params, "duration")
	if duration == "" {
		acc.Add("pause: parameter duration has to be supplied")
	} else if !clock.Valid(duration) {
		acc.Add("pause: parameter duration has to match the duration grammar")
	}
	return acc.Err()
}

func (t *Pause) Preconditions(ctx context.Context) error {
	running, err := t.docker.Running(ctx, t.serviceName)
	if err != nil {
		return fmt.Errorf("pause: probe %s: %w", t.serviceName, err)
	}
	if !running {
		return fmt.Errorf("pause: container %s is not running", t.serviceName)
	}
	return nil
}

func (t *Pause) Inject(ctx context.Context) error {
	if err := t.docker.Pause(ctx, t.serviceName); err != nil {
		return err
	}
	return clock.InterruptibleSleep(ctx, time.Duration(t.duration*float64(time.Second)))
}

func (t *Pause) Clean(ctx context.Context) error {
	return t.docker.Unpause(ctx, t.serviceName)
}

func (t *Pause) IsRuntime() bool { return true }
