// Package clock implements oxn's duration grammar and UTC timestamp helpers.
//
// The grammar supports arbitrary repeated unit groups (e.g. "10m30s"), which
// time.ParseDuration does not: its unit spelling differs (no "d") and it does
// not sum mixed groups the way oxn's original Python implementation does.
package clock

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// secondsPerUnit mirrors oxn's SECONDS_MAP.
var secondsPerUnit = map[string]float64{
	"us": 1e-6,
	"ms": 1e-3,
	"s":  1,
	"m":  60,
	"h":  3600,
	"d":  86400,
}

var durationGroup = regexp.MustCompile(`(\d+)(us|ms|s|m|h|d)`)

// Valid reports whether s matches the oxn duration grammar at least once.
func Valid(s string) bool {
	return durationGroup.MatchString(s)
}

// ParseSeconds sums every (number, unit) group found in s, in encounter
// order, so "10m30s" parses as 630 seconds. Returns an error if s contains
// no matching group at all.
func ParseSeconds(s string) (float64, error) {
	matches := durationGroup.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("clock: %q is not a valid duration string", s)
	}

	var total float64
	for _, m := range matches {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("clock: invalid numeric component %q: %w", m[1], err)
		}
		total += n * secondsPerUnit[m[2]]
	}
	return total, nil
}

// ParseDuration is a time.Duration-returning wrapper around ParseSeconds.
func ParseDuration(s string) (time.Duration, error) {
	secs, err := ParseSeconds(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ToMilliseconds converts a seconds value to milliseconds, matching
// utils.to_milliseconds.
func ToMilliseconds(seconds float64) float64 { return seconds * 1e3 }

// ToMicroseconds converts a seconds value to microseconds, matching
// utils.to_microseconds.
func ToMicroseconds(seconds float64) float64 { return seconds * 1e6 }

// UTCTimestamp returns the current time as a Unix timestamp with
// sub-second precision, matching utils.utc_timestamp.
func UTCTimestamp() float64 {
	return float64(time.Now().UTC().UnixNano()) / float64(time.Second)
}

// Humanize converts a Unix timestamp back to a UTC time.Time, matching
// utils.humanize_utc_timestamp.
func Humanize(timestamp float64) time.Time {
	secs := int64(timestamp)
	nsec := int64((timestamp - float64(secs)) * float64(time.Second))
	return time.Unix(secs, nsec).UTC()
}

// InterruptibleSleep blocks for d or until ctx is cancelled, whichever comes
// first. Generalizes the teacher's interruptibleSleep (a ticker polling a
// stopRequested flag) into a single context-driven suspension point used at
// every wait in the Runner, Observer, and LoadGenerator.
func InterruptibleSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("clock: interrupted before %s elapsed", d)
	case <-timer.C:
		return nil
	}
}
