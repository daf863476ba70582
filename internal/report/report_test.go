package report_test

import (
	"os"
	"testing"
	"time"

	"github.com/nymphbox/oxn/internal/loadgen"
	"github.com/nymphbox/oxn/internal/report"
	"github.com/nymphbox/oxn/internal/table"
)

func buildFrame(t *testing.T, treatmentStart, treatmentEnd time.Time) *table.Frame {
	t.Helper()
	f := table.New()
	f.AddColumn("value")
	base := treatmentStart.Add(-10 * time.Second)
	for i := 0; i < 20; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		value := 1.0
		if !ts.Before(treatmentStart) && !ts.After(treatmentEnd) {
			value = 100.0
		}
		f.AppendRow(ts, map[string]any{"value": value})
	}
	f.Label("delay", treatmentStart, treatmentEnd, "delay")
	return f
}

func TestComputeWelchTTestDetectsTreatmentEffect(t *testing.T) {
	start := time.Now().UTC()
	end := start.Add(5 * time.Second)
	frame := buildFrame(t, start, end)

	_, pvalue, testName, err := report.ComputeWelchTTest(frame, "delay", "delay", "value")
	if err != nil {
		t.Fatalf("ComputeWelchTTest() error = %v", err)
	}
	if testName != "welch t-test" {
		t.Errorf("testName = %q, want %q", testName, "welch t-test")
	}
	if pvalue == "" {
		t.Error("pvalue should not be empty")
	}
}

func TestGatherInteractionAndAssemble(t *testing.T) {
	start := time.Now().UTC()
	end := start.Add(5 * time.Second)
	frame := buildFrame(t, start, end)

	r := report.New("")
	err := r.GatherInteraction(
		"delay", "runtime",
		float64(start.Unix()), float64(end.Unix()),
		"latency", "metric",
		float64(start.Add(-time.Minute).Unix()), float64(end.Unix()),
		"experiment/run/latency",
		frame, "delay", "value",
	)
	if err != nil {
		t.Fatalf("GatherInteraction() error = %v", err)
	}

	r.AssembleInteractionData("run1")
	r.AddExperimentData(float64(start.Unix()), float64(end.Unix()), "abc123")
	r.AddLoadgenData("run1", loadgen.Stats{
		StartTime:            start,
		LastRequestTimestamp: end,
		NumRequests:          10,
		NumFailures:          1,
	})

	path := t.TempDir() + "/report.yaml"
	dumper := report.New(path)
	if err := dumper.GatherInteraction(
		"delay", "runtime",
		float64(start.Unix()), float64(end.Unix()),
		"latency", "metric",
		float64(start.Add(-time.Minute).Unix()), float64(end.Unix()),
		"experiment/run/latency",
		frame, "delay", "value",
	); err != nil {
		t.Fatalf("GatherInteraction() error = %v", err)
	}
	dumper.AssembleInteractionData("run1")
	dumper.AddExperimentData(float64(start.Unix()), float64(end.Unix()), "abc123")

	if err := dumper.DumpReportData(); err != nil {
		t.Fatalf("DumpReportData() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dumped report: %v", err)
	}
	if len(data) == 0 {
		t.Error("DumpReportData() wrote an empty file")
	}
}
