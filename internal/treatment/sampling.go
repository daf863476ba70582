package treatment

import (
	"context"
	"fmt"

	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/treatment/otelcol"
)

// ProbabilisticSampling writes a probabilistic_sampler processor into the
// collector's otelcol_extras overlay. Ported from
// original_source/oxn/treatments.py's ProbabilisticSamplingTreatment; its
// registry key is "probl" (see treatment.go's NewRegistry wiring).
type ProbabilisticSampling struct {
	name          string
	params        Params
	extrasPath    string
	percentage    int
	seed          int
	originalBytes []byte
}

// NewProbabilisticSampling constructs a ProbabilisticSampling treatment.
func NewProbabilisticSampling(name string, params Params) *ProbabilisticSampling {
	return &ProbabilisticSampling{
		name:       name,
		params:     params,
		extrasPath: getString(params, "otelcol_extras"),
		percentage: getInt(params, "percentage"),
		seed:       getInt(params, "seed"),
	}
}

func (t *ProbabilisticSampling) Action() string { return "probl" }

func (t *ProbabilisticSampling) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	if t.extrasPath == "" {
		acc.Add("probl: parameter otelcol_extras has to be supplied")
	}
	if _, ok := t.params["percentage"]; !ok {
		acc.Add("probl: parameter percentage has to be supplied")
	} else if t.percentage < 0 || t.percentage > 100 {
		acc.Add("probl: parameter percentage has to be in the range [0, 100]")
	}
	if _, ok := t.params["seed"]; !ok {
		acc.Add("probl: parameter seed has to be supplied")
	}
	return acc.Err()
}

func (t *ProbabilisticSampling) Preconditions(ctx context.Context) error { return nil }

func (t *ProbabilisticSampling) Inject(ctx context.Context) error {
	raw, err := readFile(t.extrasPath)
	if err != nil {
		return fmt.Errorf("probl: %w", err)
	}
	t.originalBytes = raw

	extras, err := otelcol.Load(t.extrasPath)
	if err != nil {
		return fmt.Errorf("probl: %w", err)
	}

	merged := otelcol.Merge(copyMap(extras.Raw()), otelcol.ProbabilisticSamplerPatch(t.seed, t.percentage))
	return otelcol.Save(t.extrasPath, merged)
}

// Clean restores extrasPath's original bytes verbatim rather than
// re-parsing and re-marshaling, so key order, comments, and formatting
// round-trip exactly — the same whole-file snapshot/restore readFile/
// writeFile already use for MetricsExportInterval.
func (t *ProbabilisticSampling) Clean(ctx context.Context) error {
	return writeFile(t.extrasPath, t.originalBytes)
}

func (t *ProbabilisticSampling) IsRuntime() bool { return false }

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
