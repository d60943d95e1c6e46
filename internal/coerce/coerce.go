// Package coerce reads loosely typed JSON scalars. Vendors send counts as
// numbers one day and as quoted strings the next; everything above this
// package only ever sees a float64 or "absent".
package coerce

import (
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Number returns a finite number from a JSON number or a numeric string.
// Booleans, null, objects, arrays and blank strings are absent.
func Number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return finite(r.Num)
	case gjson.String:
		return ParseNumber(r.Str)
	default:
		return 0, false
	}
}

// ParseNumber parses a trimmed, non-empty numeric string.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	return finite(n)
}

// String returns a trimmed, non-empty JSON string.
func String(r gjson.Result) (string, bool) {
	if r.Type != gjson.String {
		return "", false
	}
	s := strings.TrimSpace(r.Str)
	return s, s != ""
}

// FirstString returns the first readable string in order.
func FirstString(rs ...gjson.Result) (string, bool) {
	for _, r := range rs {
		if s, ok := String(r); ok {
			return s, true
		}
	}
	return "", false
}

func finite(n float64) (float64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
