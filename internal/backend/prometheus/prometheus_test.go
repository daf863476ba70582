package prometheus

import "testing"

func TestBuildQueryNoLabels(t *testing.T) {
	if got := BuildQuery("http_request_duration_seconds", nil); got != "http_request_duration_seconds" {
		t.Errorf("BuildQuery() = %q, want bare metric name", got)
	}
}

func TestBuildQueryWithLabelsSortedByKey(t *testing.T) {
	got := BuildQuery("http_requests_total", map[string]string{"service": "web", "code": "200"})
	want := `http_requests_total{code="200",service="web",}`
	if got != want {
		t.Errorf("BuildQuery() = %q, want %q", got, want)
	}
}
