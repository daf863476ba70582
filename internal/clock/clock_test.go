package clock

import (
	"context"
	"testing"
	"time"
)

func TestValid(t *testing.T) {
	if !Valid("10m30s") {
		t.Error(`Valid("10m30s") = false, want true`)
	}
	if Valid("not a duration") {
		t.Error(`Valid("not a duration") = true, want false`)
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10s", 10},
		{"1m", 60},
		{"1m30s", 90},
		{"1h", 3600},
		{"1d", 86400},
		{"100ms", 0.1},
	}
	for _, tt := range tests {
		got, err := ParseSeconds(tt.in)
		if err != nil {
			t.Errorf("ParseSeconds(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeconds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseSeconds("garbage"); err == nil {
		t.Error(`ParseSeconds("garbage") should error`)
	}
}

func TestParseDuration(t *testing.T) {
	got, err := ParseDuration("2s")
	if err != nil {
		t.Fatalf("ParseDuration() error = %v", err)
	}
	if got != 2*time.Second {
		t.Errorf("ParseDuration(\"2s\") = %v, want 2s", got)
	}
}

func TestHumanizeRoundTrip(t *testing.T) {
	ts := UTCTimestamp()
	got := Humanize(ts)
	if got.Unix() != int64(ts) {
		t.Errorf("Humanize(%v).Unix() = %v, want %v", ts, got.Unix(), int64(ts))
	}
}

func TestInterruptibleSleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := InterruptibleSleep(ctx, time.Second); err == nil {
		t.Error("InterruptibleSleep() with a cancelled context should error")
	}
}

func TestInterruptibleSleepZero(t *testing.T) {
	if err := InterruptibleSleep(context.Background(), 0); err != nil {
		t.Errorf("InterruptibleSleep(0) error = %v, want nil", err)
	}
}
