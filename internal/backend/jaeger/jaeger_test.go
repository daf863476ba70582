package jaeger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleTracesResponse = `{
  "data": [
    {
      "spans": [
        {"traceID": "t1", "spanID": "s1", "operationName": "GET /", "startTime": 1000000, "duration": 250000, "processID": "p1"}
      ],
      "processes": {"p1": {"serviceName": "web"}}
    }
  ]
}`

func TestSearchTracesTabulates(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleTracesResponse))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	frame, err := c.SearchTraces(context.Background(), "web", 0, 2000000, 20)
	if err != nil {
		t.Fatalf("SearchTraces() error = %v", err)
	}
	if frame.Len() != 1 {
		t.Fatalf("SearchTraces() Len() = %d, want 1", frame.Len())
	}
	if got := frame.Column("service_name")[0]; got != "web" {
		t.Errorf("service_name = %v, want %q", got, "web")
	}
	if got := frame.Column("duration")[0]; got != int64(250000) {
		t.Errorf("duration = %v, want 250000", got)
	}
	if gotQuery == "" {
		t.Error("SearchTraces() did not send any query parameters")
	}
}

func TestSearchTracesEmptyResponseErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	if _, err := c.SearchTraces(context.Background(), "web", 0, 2000000, 20); err == nil {
		t.Error("SearchTraces() with no spans should error")
	}
}
