// Package observer constructs response variables from an experiment spec
// and captures their data during and after an experiment run. Ported from
// original_source/oxn/observer.py's Observer and responses.py's
// MetricResponseVariable/TraceResponseVariable.
package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/nymphbox/oxn/internal/backend/jaeger"
	"github.com/nymphbox/oxn/internal/backend/prometheus"
	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/spec"
	"github.com/nymphbox/oxn/internal/table"
)

// Variable is one observed response: a metric or a trace, with its
// observation window resolved against the experiment's start/end.
type Variable interface {
	Name() string
	Start() float64
	End() float64
	Observe(ctx context.Context) error
	Data() *table.Frame
	Label(treatmentStart, treatmentEnd float64, labelColumn, label string)
}

// MetricVariable observes a Prometheus metric over [start, end].
type MetricVariable struct {
	name        string
	description spec.MetricDescription
	start, end  float64
	prom        *prometheus.Client
	data        *table.Frame
}

// NewMetricVariable builds a MetricVariable from a response description,
// resolving its observation window against experimentStart/End exactly
// the way MetricResponseVariable.__init__ does.
func NewMetricVariable(name string, description spec.MetricDescription, experimentStart, experimentEnd float64, prom *prometheus.Client) (*MetricVariable, error) {
	leftSecs, err := clock.ParseSeconds(description.LeftWindow)
	if err != nil {
		return nil, fmt.Errorf("observer: metric %s left_window: %w", name, err)
	}
	rightSecs, err := clock.ParseSeconds(description.RightWindow)
	if err != nil {
		return nil, fmt.Errorf("observer: metric %s right_window: %w", name, err)
	}
	return &MetricVariable{
		name:        name,
		description: description,
		start:       experimentStart - leftSecs,
		end:         experimentEnd + rightSecs,
		prom:        prom,
	}, nil
}

func (v *MetricVariable) Name() string    { return v.name }
func (v *MetricVariable) Start() float64  { return v.start }
func (v *MetricVariable) End() float64    { return v.end }
func (v *MetricVariable) Data() *table.Frame { return v.data }

// MetricName returns the underlying Prometheus metric name, which is the
// Frame's value column (as opposed to Name, the response variable's own
// name in the spec) — used by internal/report to pick
// compute_welch_ttest's value_column the way gather_interaction does.
func (v *MetricVariable) MetricName() string { return v.description.MetricName }

func (v *MetricVariable) Observe(ctx context.Context) error {
	query := prometheus.BuildQuery(v.description.MetricName, v.description.Labels)
	step := time.Duration(v.description.Step) * time.Second
	if step <= 0 {
		step = time.Second
	}
	frame, err := v.prom.RangeQuery(ctx, query, clock.Humanize(v.start), clock.Humanize(v.end), step, v.description.MetricName)
	if err != nil {
		return err
	}
	v.data = frame
	return nil
}

func (v *MetricVariable) Label(treatmentStart, treatmentEnd float64, labelColumn, label string) {
	if v.data == nil {
		return
	}
	v.data.Label(labelColumn, clock.Humanize(treatmentStart), clock.Humanize(treatmentEnd), label)
}

// TraceVariable observes Jaeger traces for a service over [start, end].
type TraceVariable struct {
	name        string
	description spec.TraceDescription
	start, end  float64
	jg          *jaeger.Client
	data        *table.Frame
}

// NewTraceVariable builds a TraceVariable from a response description,
// mirroring TraceResponseVariable.__init__'s window resolution.
func NewTraceVariable(name string, description spec.TraceDescription, experimentStart, experimentEnd float64, jg *jaeger.Client) (*TraceVariable, error) {
	leftSecs, err := clock.ParseSeconds(description.LeftWindow)
	if err != nil {
		return nil, fmt.Errorf("observer: trace %s left_window: %w", name, err)
	}
	rightSecs, err := clock.ParseSeconds(description.RightWindow)
	if err != nil {
		return nil, fmt.Errorf("observer: trace %s right_window: %w", name, err)
	}
	return &TraceVariable{
		name:        name,
		description: description,
		start:       experimentStart - leftSecs,
		end:         experimentEnd + rightSecs,
		jg:          jg,
	}, nil
}

func (v *TraceVariable) Name() string    { return v.name }
func (v *TraceVariable) Start() float64  { return v.start }
func (v *TraceVariable) End() float64    { return v.end }
func (v *TraceVariable) Data() *table.Frame { return v.data }

func (v *TraceVariable) Observe(ctx context.Context) error {
	startMicros := int64(clock.ToMicroseconds(v.start))
	endMicros := int64(clock.ToMicroseconds(v.end))
	frame, err := v.jg.SearchTraces(ctx, v.description.ServiceName, startMicros, endMicros, v.description.Limit)
	if err != nil {
		return err
	}
	v.data = frame
	return nil
}

func (v *TraceVariable) Label(treatmentStart, treatmentEnd float64, labelColumn, label string) {
	if v.data == nil {
		return
	}
	startMicros := clock.ToMicroseconds(treatmentStart)
	endMicros := clock.ToMicroseconds(treatmentEnd)
	v.data.Label(labelColumn, time.UnixMicro(int64(startMicros)).UTC(), time.UnixMicro(int64(endMicros)).UTC(), label)
}

// Observer builds and drives every response variable named in an
// experiment spec.
type Observer struct {
	experimentStart, experimentEnd float64
	variables                      map[string]Variable
}

// New constructs an Observer bound to an experiment's start/end timestamps.
func New(experimentStart, experimentEnd float64) *Observer {
	return &Observer{experimentStart: experimentStart, experimentEnd: experimentEnd, variables: make(map[string]Variable)}
}

// InitializeVariables builds one Variable per response in responses,
// dispatching on type the way Observer.initialize_variables does.
func (o *Observer) InitializeVariables(responses []spec.ResponseSpec, prom *prometheus.Client, jg *jaeger.Client) error {
	for _, r := range responses {
		switch r.Type {
		case "metric":
			desc := spec.DecodeMetricDescription(r.Description)
			v, err := NewMetricVariable(r.Name, desc, o.experimentStart, o.experimentEnd, prom)
			if err != nil {
				return err
			}
			o.variables[r.Name] = v
		case "trace":
			desc := spec.DecodeTraceDescription(r.Description)
			v, err := NewTraceVariable(r.Name, desc, o.experimentStart, o.experimentEnd, jg)
			if err != nil {
				return err
			}
			o.variables[r.Name] = v
		default:
			return fmt.Errorf("observer: response %s has unknown type %q", r.Name, r.Type)
		}
	}
	return nil
}

// Variables returns every constructed response variable.
func (o *Observer) Variables() map[string]Variable { return o.variables }

// MetricVariables filters Variables to the metric-kind ones.
func (o *Observer) MetricVariables() []*MetricVariable {
	var out []*MetricVariable
	for _, v := range o.variables {
		if mv, ok := v.(*MetricVariable); ok {
			out = append(out, mv)
		}
	}
	return out
}

// TraceVariables filters Variables to the trace-kind ones.
func (o *Observer) TraceVariables() []*TraceVariable {
	var out []*TraceVariable
	for _, v := range o.variables {
		if tv, ok := v.(*TraceVariable); ok {
			out = append(out, tv)
		}
	}
	return out
}

// TimeToWaitRight returns how long past experimentEnd the Runner must wait
// before observing, so every variable's right_window has actually elapsed —
// the Go port of Observer.time_to_wait_right.
func (o *Observer) TimeToWaitRight() float64 {
	maxEnd := o.experimentEnd
	for _, v := range o.variables {
		if v.End() > maxEnd {
			maxEnd = v.End()
		}
	}
	return maxEnd - o.experimentEnd
}

// TimeToWaitLeft returns the largest left_window across all response
// descriptions supplied, matching Observer.time_to_wait_left (which scans
// the raw spec rather than the constructed variables, since it must be
// callable before experiment_start is known).
func TimeToWaitLeft(responses []spec.ResponseSpec) (float64, error) {
	var maxLeft float64
	for _, r := range responses {
		var leftWindow string
		switch r.Type {
		case "metric":
			leftWindow = spec.DecodeMetricDescription(r.Description).LeftWindow
		case "trace":
			leftWindow = spec.DecodeTraceDescription(r.Description).LeftWindow
		}
		secs, err := clock.ParseSeconds(leftWindow)
		if err != nil {
			return 0, fmt.Errorf("observer: response %s left_window: %w", r.Name, err)
		}
		if secs > maxLeft {
			maxLeft = secs
		}
	}
	return maxLeft, nil
}

// Observe captures every variable's data, logging and continuing past
// individual failures the way Observer.observe's broad except-and-log does.
func (o *Observer) Observe(ctx context.Context, onError func(name string, err error)) {
	for name, v := range o.variables {
		if err := v.Observe(ctx); err != nil && onError != nil {
			onError(name, err)
		}
	}
}
