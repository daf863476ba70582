package accountant

import (
	"testing"
	"time"
)

func TestConsolidateComputesDelta(t *testing.T) {
	a := New(nil, []string{"sue_web_1", "sue_db_1"})
	now := time.Now()

	a.data["sue_web_1"] = []Sample{
		{ContainerName: "sue_web_1", TotalCPUUsage: 1.0, NumberOfCPUs: 2, Timestamp: now},
		{ContainerName: "sue_web_1", TotalCPUUsage: 1.5, NumberOfCPUs: 2, Timestamp: now.Add(time.Second)},
	}
	// Only one read: should be skipped, not included in consolidated data.
	a.data["sue_db_1"] = []Sample{
		{ContainerName: "sue_db_1", TotalCPUUsage: 2.0, NumberOfCPUs: 4, Timestamp: now},
	}

	skipped := a.Consolidate()
	if len(skipped) != 1 || skipped[0] != "sue_db_1" {
		t.Fatalf("Consolidate() skipped = %v, want [sue_db_1]", skipped)
	}

	data := a.ConsolidatedData()
	web, ok := data["sue_web_1"]
	if !ok {
		t.Fatalf("ConsolidatedData() missing sue_web_1")
	}
	if web.TotalCPUUsage != 0.5 {
		t.Errorf("TotalCPUUsage = %v, want 0.5", web.TotalCPUUsage)
	}
	if web.NumberOfCPUs != 2 {
		t.Errorf("NumberOfCPUs = %v, want 2", web.NumberOfCPUs)
	}
	if _, ok := data["sue_db_1"]; ok {
		t.Errorf("ConsolidatedData() should not contain sue_db_1")
	}
}

func TestTotalCPUUsageConvertsNanosToSeconds(t *testing.T) {
	if got := totalCPUUsage(2_500_000_000); got != 2.5 {
		t.Errorf("totalCPUUsage(2.5e9) = %v, want 2.5", got)
	}
}

func TestClearResetsState(t *testing.T) {
	a := New(nil, []string{"sue_web_1"})
	a.data["sue_web_1"] = []Sample{{ContainerName: "sue_web_1"}}
	a.consolidated["sue_web_1"] = Consolidated{ContainerName: "sue_web_1"}

	a.Clear()

	if len(a.data) != 0 {
		t.Errorf("Clear() left %d data entries, want 0", len(a.data))
	}
	if len(a.consolidated) != 0 {
		t.Errorf("Clear() left %d consolidated entries, want 0", len(a.consolidated))
	}
}
