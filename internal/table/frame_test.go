package table

import (
	"reflect"
	"testing"
	"time"
)

func buildFrame() *Frame {
	f := New()
	f.AddColumn("value")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f.AppendRow(base.Add(time.Duration(i)*time.Second), map[string]any{"value": float64(i)})
	}
	return f
}

func TestAddColumnIsIdempotent(t *testing.T) {
	f := buildFrame()
	f.AddColumn("value")
	if got := f.ColumnNames(); !reflect.DeepEqual(got, []string{"value"}) {
		t.Errorf("ColumnNames() = %v, want [value] (AddColumn should not duplicate)", got)
	}
}

func TestFloat64ColumnSkipsNonNumeric(t *testing.T) {
	f := New()
	f.AddColumn("value")
	now := time.Now()
	f.AppendRow(now, map[string]any{"value": 1.0})
	f.AppendRow(now, map[string]any{"value": "NoTreatment"})
	f.AppendRow(now, map[string]any{"value": 3})

	got := f.Float64Column("value")
	want := []float64{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Float64Column() = %v, want %v", got, want)
	}
}

func TestLabelMarksWindow(t *testing.T) {
	f := buildFrame()
	base := f.Index[0]
	f.Label("delay", base.Add(time.Second), base.Add(2*time.Second), "delay")

	labels := f.Column("delay")
	want := []any{"NoTreatment", "delay", "delay", "NoTreatment", "NoTreatment"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("Label() column = %v, want %v", labels, want)
	}
}

func TestFilterByLabel(t *testing.T) {
	f := buildFrame()
	base := f.Index[0]
	f.Label("delay", base.Add(time.Second), base.Add(2*time.Second), "delay")

	matched := f.FilterByLabel("delay", "delay", false)
	if matched.Len() != 2 {
		t.Errorf("FilterByLabel() matched Len() = %d, want 2", matched.Len())
	}

	inverted := f.FilterByLabel("delay", "delay", true)
	if inverted.Len() != 3 {
		t.Errorf("FilterByLabel() inverted Len() = %d, want 3", inverted.Len())
	}
}

func TestConcat(t *testing.T) {
	a := buildFrame()
	b := buildFrame()
	out := Concat(a, b)
	if out.Len() != a.Len()+b.Len() {
		t.Errorf("Concat() Len() = %d, want %d", out.Len(), a.Len()+b.Len())
	}
	if !reflect.DeepEqual(out.ColumnNames(), []string{"value"}) {
		t.Errorf("Concat() ColumnNames() = %v, want [value]", out.ColumnNames())
	}
}

func TestConcatSkipsNilFrames(t *testing.T) {
	a := buildFrame()
	out := Concat(nil, a, nil)
	if out.Len() != a.Len() {
		t.Errorf("Concat() with nils Len() = %d, want %d", out.Len(), a.Len())
	}
}
