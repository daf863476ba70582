package treatment

import (
	"context"
	"fmt"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/container"
	"github.com/nymphbox/oxn/internal/oxnerr"
)

// Kill SIGKILLs a service's container, sleeps for Params["duration"], and
// restarts it on clean. Ported from
// original_source/oxn/treatments.py's KillTreatment.
type Kill struct {
	name        string
	params      Params
	serviceName string
	duration    float64
	docker      *container.Client
}

// NewKill constructs a Kill treatment.
func NewKill(name string, params Params) *Kill {
	return &Kill{
		name:        name,
		params:      params,
		serviceName: getString(params, "service_name"),
		duration:    durationSeconds(params),
	}
}

func (t *Kill) Action() string { return "kill" }

func (t *Kill) SetDockerClient(c *container.Client) { t.docker = c }

func (t *Kill) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	if t.serviceName == "" {
		acc.Add("kill: parameter service_name has to be supplied")
	}
	if duration := getString(t.params, "duration"); duration != "" && !clock.Valid(duration) {
		acc.Add("kill: parameter duration has to match the duration grammar")
	}
	return acc.Err()
}

func (t *Kill) Preconditions(ctx context.Context) error {
	running, err := t.docker.Running(ctx, t.serviceName)
	if err != nil {
		return fmt.Errorf("kill: probe %s: %w", t.serviceName, err)
	}
	if !running {
		return fmt.Errorf("kill: container %s is not running", t.serviceName)
	}
	return nil
}

func (t *Kill) Inject(ctx context.Context) error {
	if err := t.docker.Kill(ctx, t.serviceName, ""); err != nil {
		return err
	}
	return clock.InterruptibleSleep(ctx, time.Duration(t.duration*float64(time.Second)))
}

func (t *Kill) Clean(ctx context.Context) error {
	return t.docker.Restart(ctx, t.serviceName)
}

func (t *Kill) IsRuntime() bool { return true }
