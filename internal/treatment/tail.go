package treatment

import (
	"context"
	"fmt"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/container"
	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/treatment/otelcol"
)

// collectorContainer is the fixed container name the original hard-codes
// ("otel-col") for the stop/wait/start cycle tail sampling requires.
const collectorContainer = "otel-col"

// TailSampling writes a tail_sampling policy to the collector's
// otelcol_extras overlay and restarts the collector container to pick it
// up, since the collector cannot hot-reload. Ported from
// original_source/oxn/treatments.py's TailSamplingTreatment.
type TailSampling struct {
	name          string
	params        Params
	extrasPath    string
	policyName    string
	policyType    string
	policyParams  map[string]interface{}
	duration      float64
	originalBytes []byte
	docker        *container.Client
}

// NewTailSampling constructs a TailSampling treatment.
func NewTailSampling(name string, params Params) *TailSampling {
	return &TailSampling{
		name:         name,
		params:       params,
		extrasPath:   getString(params, "otelcol_extras"),
		policyName:   getString(params, "policy_name"),
		policyType:   getString(params, "type"),
		policyParams: getDict(params, "policy_params"),
		duration:     durationSeconds(params),
	}
}

func (t *TailSampling) Action() string { return "tail" }

func (t *TailSampling) SetDockerClient(c *container.Client) { t.docker = c }

// ValidateParams is intentionally permissive, matching the original's
// TODO-marked _validate_params, which always returns True.
func (t *TailSampling) ValidateParams() error { return oxnerr.NewAccumulator(oxnerr.Validation).Err() }

func (t *TailSampling) Preconditions(ctx context.Context) error { return nil }

func (t *TailSampling) Inject(ctx context.Context) error {
	raw, err := readFile(t.extrasPath)
	if err != nil {
		return fmt.Errorf("tail: %w", err)
	}
	t.originalBytes = raw

	patch := otelcol.TailSamplingPatch(t.policyName, t.policyType, t.policyParams)
	if err := otelcol.Save(t.extrasPath, patch); err != nil {
		return fmt.Errorf("tail: %w", err)
	}

	if err := t.docker.Stop(ctx, collectorContainer, nil); err != nil {
		return fmt.Errorf("tail: stop collector: %w", err)
	}
	if err := t.docker.Start(ctx, collectorContainer); err != nil {
		return fmt.Errorf("tail: start collector: %w", err)
	}

	return clock.InterruptibleSleep(ctx, time.Duration(t.duration*float64(time.Second)))
}

// Clean restores extrasPath's original bytes verbatim rather than
// re-parsing and re-marshaling, so key order, comments, and formatting
// round-trip exactly — the same whole-file snapshot/restore readFile/
// writeFile already use for MetricsExportInterval.
func (t *TailSampling) Clean(ctx context.Context) error {
	return writeFile(t.extrasPath, t.originalBytes)
}

func (t *TailSampling) IsRuntime() bool { return true }
