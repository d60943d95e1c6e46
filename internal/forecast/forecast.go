// Package forecast projects where a progress line will land when its
// window resets, assuming the pace so far continues.
package forecast

import (
	"fmt"
	"time"

	"github.com/tnunamak/usagemeter/internal/usage"
)

type Status string

const (
	// StatusAhead means usage is comfortably below the even pace.
	StatusAhead   Status = "ahead"
	StatusOnTrack Status = "on-track"
	// StatusBehind means the limit will be reached before reset.
	StatusBehind Status = "behind"
)

// aheadMargin is how far under the even pace usage must be to count as ahead.
const aheadMargin = 0.9

type Projection struct {
	// Projected is the estimated fraction of the limit used at reset (0-1+).
	Projected float64 `json:"projected"`
	Status    Status  `json:"status"`
	// RunsOutIn is set only when Status is StatusBehind.
	RunsOutIn time.Duration `json:"runs_out_in,omitempty"`
}

// Pace projects l at now. It needs a positive limit, a reset time and a
// window length; ok is false when any of them is missing.
func Pace(l usage.Line, now time.Time) (Projection, bool) {
	if l.Type != usage.TypeProgress || l.Limit <= 0 {
		return Projection{}, false
	}
	resetsAt, hasReset := l.ResetTime()
	window := l.Period()
	if !hasReset || window <= 0 {
		return Projection{}, false
	}

	used := max(l.Used, 0)
	frac := used / l.Limit
	remaining := resetsAt.Sub(now)
	elapsed := window - remaining

	if elapsed <= 0 || used == 0 {
		return Projection{Projected: frac, Status: StatusAhead}, true
	}
	if remaining <= 0 {
		p := Projection{Projected: frac, Status: StatusOnTrack}
		if frac >= 1 {
			p.Status = StatusBehind
		}
		return p, true
	}

	elapsedFrac := elapsed.Seconds() / window.Seconds()
	p := Projection{Projected: frac / elapsedFrac}
	switch {
	case p.Projected >= 1:
		p.Status = StatusBehind
		if used < l.Limit {
			rate := used / elapsed.Seconds()
			p.RunsOutIn = time.Duration((l.Limit - used) / rate * float64(time.Second))
		}
	case frac <= elapsedFrac*aheadMargin:
		p.Status = StatusAhead
	default:
		p.Status = StatusOnTrack
	}
	return p, true
}

// Indicator returns a short human string for the projection.
func (p Projection) Indicator() string {
	switch p.Status {
	case StatusBehind:
		if p.RunsOutIn > 0 {
			return "runs out in " + FormatDuration(p.RunsOutIn)
		}
		return "limit reached"
	case StatusOnTrack:
		return "on track"
	default:
		return "ahead of pace"
	}
}

// FormatDuration renders d compactly: "2d 3h", "4h 12m", "35m" or "<1m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
