package normalize

import (
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/coerce"
)

// secondsCutoff: epoch values below this magnitude are seconds.
const secondsCutoff = 1e10

// EpochToMs reads an epoch timestamp in seconds or milliseconds.
func EpochToMs(r gjson.Result) (int64, bool) {
	n, ok := coerce.Number(r)
	if !ok {
		return 0, false
	}
	return ScaleEpoch(n), true
}

func ScaleEpoch(n float64) int64 {
	if math.Abs(n) < secondsCutoff {
		n *= 1000
	}
	return int64(math.Round(n))
}

// Window is a product's fixed reset window.
type Window struct {
	Length    time.Duration
	Tolerance time.Duration
}

// Bound is the longest plausible remaining duration in milliseconds.
func (w Window) Bound() float64 {
	return float64((w.Length + w.Tolerance).Milliseconds())
}

// InferRemainsMs decides whether raw, a "time until reset" value, is seconds
// or milliseconds. With a known future end time the interpretation closer to
// it wins. Otherwise the window bound decides: if exactly one reading fits it
// is used, if both fit seconds are assumed, if neither fits the one that
// overshoots less wins with ties going to seconds. raw <= 0 means unknown.
func InferRemainsMs(raw float64, endMs *int64, nowMs int64, w Window) (int64, bool) {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false
	}
	asSeconds := raw * 1000
	asMillis := raw

	if endMs != nil {
		if toEnd := float64(*endMs - nowMs); toEnd > 0 {
			if math.Abs(asSeconds-toEnd) <= math.Abs(asMillis-toEnd) {
				return round(asSeconds), true
			}
			return round(asMillis), true
		}
	}

	bound := w.Bound()
	secondsFit := asSeconds <= bound
	millisFit := asMillis <= bound
	switch {
	case secondsFit && !millisFit:
		return round(asSeconds), true
	case millisFit && !secondsFit:
		return round(asMillis), true
	case secondsFit && millisFit:
		return round(asSeconds), true
	}
	if math.Abs(asSeconds-bound) <= math.Abs(asMillis-bound) {
		return round(asSeconds), true
	}
	return round(asMillis), true
}

func round(v float64) int64 { return int64(math.Round(v)) }

// ResetMs is the end time when known, else now plus the remaining duration.
func ResetMs(endMs *int64, remainsMs *int64, nowMs int64) *int64 {
	if endMs != nil {
		v := *endMs
		return &v
	}
	if remainsMs != nil {
		v := nowMs + *remainsMs
		return &v
	}
	return nil
}

// PeriodMs is end - start when both are known and end is after start.
func PeriodMs(startMs, endMs *int64) *int64 {
	if startMs == nil || endMs == nil || *endMs <= *startMs {
		return nil
	}
	v := *endMs - *startMs
	return &v
}
