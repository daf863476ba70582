package treatment

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/container"
	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/treatment/netem"
)

var delayCorrelationRegex = regexp.MustCompile(`^\d+%$`)

// Delay injects network delay on a container's interface via tc netem, then
// removes the qdisc on clean. Ported from
// original_source/oxn/treatments.py's NetworkDelayTreatment.
type Delay struct {
	name        string
	params      Params
	serviceName string
	iface       string
	delayTime   string
	jitter      string
	correlation string
	duration    float64
	docker      *container.Client
}

// NewDelay constructs a Delay treatment.
func NewDelay(name string, params Params) *Delay {
	return &Delay{
		name:        name,
		params:      params,
		serviceName: getString(params, "service_name"),
		iface:       getStringOr(params, "interface", "eth0"),
		delayTime:   getString(params, "delay_time"),
		jitter:      getStringOr(params, "delay_jitter", "0ms"),
		correlation: getStringOr(params, "delay_correlation", "0%"),
		duration:    durationSeconds(params),
	}
}

func (t *Delay) Action() string { return "delay" }

func (t *Delay) SetDockerClient(c *container.Client) { t.docker = c }

func (t *Delay) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	if t.serviceName == "" {
		acc.Add("delay: parameter service_name has to be supplied")
	}
	if getString(t.params, "interface") == "" {
		acc.Add("delay: parameter interface has to be supplied")
	}
	if t.delayTime == "" {
		acc.Add("delay: parameter delay_time has to be supplied")
	}
	if duration := getString(t.params, "duration"); duration == "" {
		acc.Add("delay: parameter duration has to be supplied")
	} else if !clock.Valid(duration) {
		acc.Add("delay: parameter duration has to match the duration grammar")
	}
	if !delayCorrelationRegex.MatchString(t.correlation) {
		acc.Add("delay: parameter delay_correlation has to match %s", delayCorrelationRegex.String())
	}
	return acc.Err()
}

func (t *Delay) Preconditions(ctx context.Context) error {
	out, err := t.docker.ExecCommand(ctx, t.serviceName, netem.VersionCheck())
	if err != nil {
		return fmt.Errorf("delay: container %s does not have tc installed: %w (%s)", t.serviceName, err, out)
	}
	return nil
}

func (t *Delay) Inject(ctx context.Context) error {
	cmd := netem.DelayAdd(t.iface, t.delayTime, t.jitter, t.correlation)
	if _, err := t.docker.ExecCommand(ctx, t.serviceName, cmd); err != nil {
		return fmt.Errorf("delay: inject into %s: %w", t.serviceName, err)
	}
	return clock.InterruptibleSleep(ctx, time.Duration(t.duration*float64(time.Second)))
}

func (t *Delay) Clean(ctx context.Context) error {
	_, err := t.docker.ExecCommand(ctx, t.serviceName, netem.DelayDel(t.iface))
	return err
}

func (t *Delay) IsRuntime() bool { return true }
