package treatment

import (
	"context"
	"fmt"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/treatment/compose"
)

// MetricsExportInterval sets OTEL_METRIC_EXPORT_INTERVAL on a service in
// its docker-compose file, restoring the file's original contents on
// clean. Ported from original_source/oxn/treatments.py's
// MetricsExportIntervalTreatment.
type MetricsExportInterval struct {
	name          string
	params        Params
	composeFile   string
	serviceName   string
	interval      string
	intervalMS    int
	originalBytes []byte
}

// NewMetricsExportInterval constructs a MetricsExportInterval treatment.
func NewMetricsExportInterval(name string, params Params) *MetricsExportInterval {
	return &MetricsExportInterval{
		name:        name,
		params:      params,
		composeFile: getString(params, "compose_file"),
		serviceName: getString(params, "service_name"),
		interval:    getString(params, "interval"),
	}
}

func (t *MetricsExportInterval) Action() string { return "otel_metrics_interval" }

func (t *MetricsExportInterval) ValidateParams() error {
	acc := oxnerr.NewAccumulator(oxnerr.Validation)
	if t.composeFile == "" {
		acc.Add("otel_metrics_interval: parameter compose_file has to be supplied")
	}
	if t.serviceName == "" {
		acc.Add("otel_metrics_interval: parameter service_name has to be supplied")
	}
	if t.interval == "" {
		acc.Add("otel_metrics_interval: parameter interval has to be supplied")
	} else if !clock.Valid(t.interval) {
		acc.Add("otel_metrics_interval: parameter interval has to match the duration grammar")
	}
	return acc.Err()
}

func (t *MetricsExportInterval) Preconditions(ctx context.Context) error { return nil }

func (t *MetricsExportInterval) Inject(ctx context.Context) error {
	secs, err := clock.ParseSeconds(t.interval)
	if err != nil {
		return fmt.Errorf("otel_metrics_interval: %w", err)
	}
	t.intervalMS = int(clock.ToMilliseconds(secs))

	raw, err := readFile(t.composeFile)
	if err != nil {
		return fmt.Errorf("otel_metrics_interval: %w", err)
	}
	t.originalBytes = raw

	f, err := compose.Load(t.composeFile)
	if err != nil {
		return fmt.Errorf("otel_metrics_interval: %w", err)
	}
	if err := f.AddEnvVariable(t.serviceName, "OTEL_METRIC_EXPORT_INTERVAL", fmt.Sprintf("%d", t.intervalMS)); err != nil {
		return fmt.Errorf("otel_metrics_interval: %w", err)
	}
	return f.Save(t.composeFile)
}

func (t *MetricsExportInterval) Clean(ctx context.Context) error {
	return writeFile(t.composeFile, t.originalBytes)
}

func (t *MetricsExportInterval) IsRuntime() bool { return false }
