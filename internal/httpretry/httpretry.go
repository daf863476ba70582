// Package httpretry wraps an *http.Client with oxn's one retry policy,
// named in spec.md §9: a fixed 0.1s backoff, up to 5 retries, applied only
// to 500/502/503/504 responses and transport-level errors. Used by the
// Jaeger backend client (with those defaults) and the load generator's
// HTTP client (0.1s, 3 retries); the Prometheus client talks through
// client_golang's own transport without it.
//
// github.com/cenkalti/backoff/v4 is not part of the teacher's own
// dependency graph; it is pulled in here from the wider example pack
// (present as an indirect dependency of jinterlante1206-AleutianLocal and
// owulveryck-agenthub, via their OpenTelemetry exporter stacks) because no
// retry-loop library appears in the teacher itself and hand-rolling a
// second one, when the pack already demonstrates one, would not be
// idiomatic to the corpus.
package httpretry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client wraps http.Client with the fixed-backoff retry policy.
type Client struct {
	http     *http.Client
	Interval time.Duration
	MaxTries uint64
}

// New builds a retrying client. If interval/maxTries are zero, spec.md §9's
// defaults (0.1s, 5 retries) are used.
func New(inner *http.Client, interval time.Duration, maxTries uint64) *Client {
	if inner == nil {
		inner = http.DefaultClient
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if maxTries == 0 {
		maxTries = 5
	}
	return &Client{http: inner, Interval: interval, MaxTries: maxTries}
}

// Do executes req, retrying on transport errors and retriable status codes
// with a constant backoff.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.Interval), c.MaxTries)
	if req.Context() != nil {
		policy = backoff.WithContext(policy, req.Context())
	}

	var resp *http.Response
	op := func() error {
		r, err := c.http.Do(cloneRequest(req))
		if err != nil {
			return err
		}
		if isRetriableStatus(r.StatusCode) {
			r.Body.Close()
			return fmt.Errorf("httpretry: retriable status %d from %s", r.StatusCode, req.URL)
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

func isRetriableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// cloneRequest shallow-clones req so each retry attempt gets its own body
// reader state; callers supplying a body should use GetBody-aware requests.
func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(context.Background())
	if req.Context() != nil {
		clone = req.Clone(req.Context())
	}
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
		}
	}
	return clone
}
