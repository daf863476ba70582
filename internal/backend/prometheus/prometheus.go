// Package prometheus wraps the Prometheus HTTP API client for oxn's
// metric response variables, adapted from the teacher's
// pkg/monitoring/prometheus/client.go (same api+v1.API+model.Value
// wrapping) but reshaped to build a BuildQuery label-matcher string the
// way original_source/oxn/prometheus.py's Prometheus.build_query does,
// and to return an internal/table.Frame rather than a flat QueryResult
// slice, matching responses.py's dataframe-shaped observation data.
package prometheus

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/table"
)

// Client wraps the Prometheus v1 HTTP API.
type Client struct {
	api     v1.API
	Timeout time.Duration
}

// New connects to a Prometheus server at url.
func New(url string, timeout time.Duration) (*Client, error) {
	apiClient, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("prometheus: create client: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{api: v1.NewAPI(apiClient), Timeout: timeout}, nil
}

// BuildQuery renders a PromQL selector from a metric name and label map,
// matching build_query's `metric_name{k="v",...}` shape.
func BuildQuery(metricName string, labels map[string]string) string {
	if len(labels) == 0 {
		return metricName
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	selector := ""
	for _, k := range keys {
		selector += fmt.Sprintf(`%s="%s",`, k, labels[k])
	}
	return fmt.Sprintf("%s{%s}", metricName, selector)
}

// RangeQuery runs query over [start, end] at the given step, returning a
// Frame with one column per metric (named metricColumn) plus the metric's
// own label columns — the Go analog of _range_query_to_df.
func (c *Client) RangeQuery(ctx context.Context, query string, start, end time.Time, step time.Duration, metricColumn string) (*table.Frame, error) {
	qctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	result, _, err := c.api.QueryRange(qctx, query, v1.Range{Start: start, End: end, Step: step})
	if err != nil {
		return nil, oxnerr.New(oxnerr.MetricBackend, fmt.Sprintf("range query failed: %v", err))
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, oxnerr.New(oxnerr.MetricBackend, fmt.Sprintf("unexpected result type %T for range query", result))
	}
	if len(matrix) == 0 {
		return nil, oxnerr.New(oxnerr.MetricBackend, "cannot create dataframe from empty Prometheus response")
	}

	frame := table.New()
	frame.AddColumn(metricColumn)
	for _, stream := range matrix {
		for _, sample := range stream.Values {
			row := map[string]any{metricColumn: float64(sample.Value)}
			for name, value := range stream.Metric {
				row[string(name)] = string(value)
			}
			frame.AppendRow(sample.Timestamp.Time(), row)
		}
	}
	return frame, nil
}

// InstantQuery runs query at ts and returns the single matched sample's
// value, or an error if the vector has no elements.
func (c *Client) InstantQuery(ctx context.Context, query string, ts time.Time) (float64, error) {
	qctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	result, _, err := c.api.Query(qctx, query, ts)
	if err != nil {
		return 0, oxnerr.New(oxnerr.MetricBackend, fmt.Sprintf("instant query failed: %v", err))
	}
	vector, ok := result.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, oxnerr.New(oxnerr.MetricBackend, "instant query returned no samples")
	}
	return float64(vector[0].Value), nil
}
