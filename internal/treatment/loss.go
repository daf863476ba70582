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

var percentageRegex = regexp.MustCompile(`^[1-9][0-9]?%$|^100%$`)

// Loss injects random packet loss on a container's interface via tc netem,
// then removes the qdisc on clean. Ported from
// original_source/oxn/treatments.py's PacketLossTreatment.
type Loss struct {
	name        string
	params      Params
	serviceName string
	iface       string
	percentage  string
	duration    float64
	docker      *container.Client
}

// NewLoss constructs a Loss treatment.
func NewLoss(name string, params Params) *Loss {
	return &Loss{
		name:        name,
		params:      params,
		serviceName: getString(params, "service_name"),
		iface:       getStringOr(params, "interface", "eth0"),
		percentage:  getString(params, "loss_percentage"),
		duration:    durationSeconds(params),
	}
}

func (t *Loss) Action() string { return "loss" }

func (t *Loss) SetDockerClient(c *container.Client) { t.docker = c }

func (t *Loss) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	if t.serviceName == "" {
		acc.Add("loss: parameter service_name has to be supplied")
	}
	if getString(t.params, "interface") == "" {
		acc.Add("loss: parameter interface has to be supplied")
	}
	if duration := getString(t.params, "duration"); duration == "" {
		acc.Add("loss: parameter duration has to be supplied")
	} else if !clock.Valid(duration) {
		acc.Add("loss: parameter duration has to match the duration grammar")
	}
	if t.percentage == "" {
		acc.Add("loss: parameter loss_percentage has to be supplied")
	} else if !percentageRegex.MatchString(t.percentage) {
		acc.Add("loss: parameter loss_percentage has to match %s", percentageRegex.String())
	}
	return acc.Err()
}

func (t *Loss) Preconditions(ctx context.Context) error {
	out, err := t.docker.ExecCommand(ctx, t.serviceName, netem.VersionCheck())
	if err != nil {
		return fmt.Errorf("loss: container %s does not have tc installed: %w (%s)", t.serviceName, err, out)
	}
	return nil
}

func (t *Loss) Inject(ctx context.Context) error {
	cmd := netem.LossAdd(t.iface, t.percentage)
	if _, err := t.docker.ExecCommand(ctx, t.serviceName, cmd); err != nil {
		return fmt.Errorf("loss: inject into %s: %w", t.serviceName, err)
	}
	return clock.InterruptibleSleep(ctx, time.Duration(t.duration*float64(time.Second)))
}

func (t *Loss) Clean(ctx context.Context) error {
	_, err := t.docker.ExecCommand(ctx, t.serviceName, netem.LossDel(t.iface))
	return err
}

func (t *Loss) IsRuntime() bool { return true }
