package treatment

import (
	"os"

	"github.com/nymphbox/oxn/internal/clock"
)

// readFile and writeFile back every compile-time treatment's whole-file
// snapshot/restore clean() strategy: inject snapshots the raw bytes before
// mutating, clean writes them back verbatim, so key order, comments, and
// formatting round-trip exactly instead of drifting through a parse/
// re-marshal cycle.
func readFile(path string) ([]byte, error) { return os.ReadFile(path) }

func writeFile(path string, data []byte) error { return os.WriteFile(path, data, 0644) }

// getString fetches a string param, returning "" if absent or wrong type.
func getString(p Params, key string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getStringOr is getString with a default for an absent/empty value.
func getStringOr(p Params, key, def string) string {
	if v := getString(p, key); v != "" {
		return v
	}
	return def
}

// getInt fetches an int param, returning 0 if absent or wrong type.
func getInt(p Params, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// getDict fetches a nested map param.
func getDict(p Params, key string) map[string]interface{} {
	if v, ok := p[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// durationSeconds resolves the "duration" param through oxn's duration
// grammar, defaulting to 0 when absent (EmptyTreatment and friends treat a
// missing duration as "no sleep").
func durationSeconds(p Params) float64 {
	s := getString(p, "duration")
	if s == "" {
		return 0
	}
	secs, err := clock.ParseSeconds(s)
	if err != nil {
		return 0
	}
	return secs
}
