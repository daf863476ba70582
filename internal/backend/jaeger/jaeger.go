// Package jaeger wraps Jaeger's HTTP query API (the undocumented
// /jaeger/ui/api/ surface the original talks to directly) and tabulates
// its trace search response into an internal/table.Frame. No teacher
// analog exists for a tracing backend client, so this package is built
// fresh from original_source/oxn/jaeger.py's Jaeger wrapper and
// responses.py's TraceResponseVariable._tabulate, kept in the teacher's
// client-wrapper shape (a Config, a constructor, one method per endpoint,
// wrapped errors) the way pkg/monitoring/prometheus/client.go does it for
// Prometheus.
package jaeger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nymphbox/oxn/internal/httpretry"
	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/table"
)

// Client wraps Jaeger's query API at baseURL (e.g. "http://localhost:16686").
type Client struct {
	baseURL string
	http    *httpretry.Client
}

// New builds a Client whose requests go through oxn's retry policy
// (spec.md §9: 0.1s backoff, 5 retries, 500/502/503/504 only) — the same
// retry.Retry(total=5, backoff_factor=0.1, status_forcelist=[...]) the
// original mounts on its requests.Session.
func New(baseURL string, timeout time.Duration) *Client {
	inner := &http.Client{Timeout: timeout}
	return &Client{baseURL: baseURL, http: httpretry.New(inner, 0, 0)}
}

type searchTracesResponse struct {
	Data []traceJSON `json:"data"`
}

type traceJSON struct {
	Spans     []spanJSON           `json:"spans"`
	Processes map[string]processJSON `json:"processes"`
}

type spanJSON struct {
	TraceID       string `json:"traceID"`
	SpanID        string `json:"spanID"`
	OperationName string `json:"operationName"`
	StartTime     int64  `json:"startTime"` // microseconds since epoch
	Duration      int64  `json:"duration"`  // microseconds
	ProcessID     string `json:"processID"`
}

type processJSON struct {
	ServiceName string `json:"serviceName"`
}

// SearchTraces queries /api/traces for service between [startMicros,
// endMicros] (Jaeger's wire unit — microseconds since epoch), returning a
// Frame tabulated the way _tabulate does: one row per span, columns
// trace_id/span_id/operation/start_time/end_time/duration/service_name,
// indexed by the span's start time.
func (c *Client) SearchTraces(ctx context.Context, service string, startMicros, endMicros int64, limit int) (*table.Frame, error) {
	endpoint := c.baseURL + "/jaeger/ui/api/traces"
	q := url.Values{}
	q.Set("service", service)
	q.Set("start", strconv.FormatInt(startMicros, 10))
	q.Set("end", strconv.FormatInt(endMicros, 10))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, oxnerr.New(oxnerr.TraceBackend, fmt.Sprintf("build request: %v", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, oxnerr.New(oxnerr.TraceBackend, fmt.Sprintf("talking to Jaeger at %s: %v", endpoint, err))
	}
	defer resp.Body.Close()

	var parsed searchTracesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, oxnerr.New(oxnerr.TraceBackend, fmt.Sprintf("decode Jaeger response: %v", err))
	}

	return tabulate(parsed)
}

// tabulate is the Go port of responses.py's _tabulate: flattens every
// trace's spans into a single Frame, resolving each span's process_id
// through its trace's processes map to get the service name.
func tabulate(resp searchTracesResponse) (*table.Frame, error) {
	frame := table.New()
	for _, col := range []string{"trace_id", "span_id", "operation", "start_time", "end_time", "duration", "service_name"} {
		frame.AddColumn(col)
	}

	rowCount := 0
	for _, trace := range resp.Data {
		for _, span := range trace.Spans {
			serviceName := ""
			if proc, ok := trace.Processes[span.ProcessID]; ok {
				serviceName = proc.ServiceName
			}
			startTime := time.UnixMicro(span.StartTime).UTC()
			frame.AppendRow(startTime, map[string]any{
				"trace_id":     span.TraceID,
				"span_id":      span.SpanID,
				"operation":    span.OperationName,
				"start_time":   span.StartTime,
				"end_time":     span.StartTime + span.Duration,
				"duration":     span.Duration,
				"service_name": serviceName,
			})
			rowCount++
		}
	}

	if rowCount == 0 {
		return nil, oxnerr.New(oxnerr.TraceBackend, "Jaeger sent an empty response, cannot tabulate traces")
	}
	return frame, nil
}
