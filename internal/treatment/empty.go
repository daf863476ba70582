package treatment

import (
	"context"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/oxnerr"
)

// Empty is a no-op treatment: it sleeps for Params["duration"] and injects
// nothing, giving a baseline observation window. Ported from
// original_source/oxn/treatments.py's EmptyTreatment.
type Empty struct {
	name     string
	params   Params
	duration float64
}

// NewEmpty constructs an Empty treatment.
func NewEmpty(name string, params Params) *Empty {
	return &Empty{name: name, params: params, duration: durationSeconds(params)}
}

func (t *Empty) Action() string { return "empty" }

func (t *Empty) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	duration := getString(t.params, "duration")
	if duration == "" {
		acc.Add("empty: parameter duration has to be supplied")
	} else if !clock.Valid(duration) {
		acc.Add("empty: parameter duration has to match the duration grammar")
	}
	return acc.Err()
}

func (t *Empty) Preconditions(ctx context.Context) error { return nil }

func (t *Empty) Inject(ctx context.Context) error {
	return clock.InterruptibleSleep(ctx, time.Duration(t.duration*float64(time.Second)))
}

func (t *Empty) Clean(ctx context.Context) error { return nil }

func (t *Empty) IsRuntime() bool { return true }
