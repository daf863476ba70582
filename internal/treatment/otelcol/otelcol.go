// Package otelcol patches the OpenTelemetry Collector's "extras" YAML
// overlay file (the otelcol_extras fragment docker-compose mounts
// alongside the collector's base config). It only builds and writes the
// YAML; the collector restart tail sampling needs is done by the
// TailSampling treatment itself. Ported from original_source/oxn/treatments.py's
// ProbabilisticSamplingTreatment and TailSamplingTreatment.
package otelcol

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Extras is the parsed otelcol_extras.yml overlay.
type Extras struct {
	raw map[string]interface{}
}

// Load reads path, treating a missing or empty document as an empty map —
// matching the original's `if not existing_config: existing_config = {}`.
func Load(path string) (*Extras, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("otelcol: read %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("otelcol: parse %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return &Extras{raw: raw}, nil
}

// Raw returns the underlying map (not a copy). Treatments restore the
// file on clean from the raw bytes they read before mutating, not from
// this map.
func (e *Extras) Raw() map[string]interface{} { return e.raw }

// Save writes raw back to path.
func Save(path string, raw map[string]interface{}) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("otelcol: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ProbabilisticSamplerPatch builds the processors.probabilistic_sampler +
// service.pipelines.traces.processors overlay ProbabilisticSamplingTreatment
// writes on inject.
func ProbabilisticSamplerPatch(seed, percentage int) map[string]interface{} {
	return map[string]interface{}{
		"processors": map[string]interface{}{
			"probabilistic_sampler": map[string]interface{}{
				"hash_seed":          seed,
				"sampling_percentage": percentage,
			},
		},
		"service": map[string]interface{}{
			"pipelines": map[string]interface{}{
				"traces": map[string]interface{}{
					"processors": []string{"probabilistic_sampler"},
				},
			},
		},
	}
}

// TailSamplingPatch builds the processors.tail_sampling policy overlay
// TailSamplingTreatment writes on inject — a single named policy whose
// type-keyed params block mirrors the original's
// `{name, type, <type>: params}` policy shape.
func TailSamplingPatch(policyName, policyType string, policyParams map[string]interface{}) map[string]interface{} {
	policy := map[string]interface{}{
		"name":     policyName,
		"type":     policyType,
		policyType: policyParams,
	}
	return map[string]interface{}{
		"processors": map[string]interface{}{
			"tail_sampling": map[string]interface{}{
				"policies": []interface{}{policy},
			},
		},
		"service": map[string]interface{}{
			"pipelines": map[string]interface{}{
				"traces": map[string]interface{}{
					"processors": []string{"tail_sampling"},
				},
			},
		},
	}
}

// Merge shallow-merges patch's top-level keys into existing, matching the
// original's dict.update call for the probabilistic sampler (tail sampling
// instead overwrites the file wholesale, per the source).
func Merge(existing, patch map[string]interface{}) map[string]interface{} {
	for k, v := range patch {
		existing[k] = v
	}
	return existing
}
