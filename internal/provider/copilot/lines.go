package copilot

import (
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/coerce"
	"github.com/tnunamak/usagemeter/internal/normalize"
	"github.com/tnunamak/usagemeter/internal/usage"
)

// premiumLine reads a quota snapshot. percent_remaining must be a JSON number.
func premiumLine(snapshot gjson.Result, reset *int64) (usage.Line, bool) {
	pr := snapshot.Get("percent_remaining")
	if pr.Type != gjson.Number {
		return usage.Line{}, false
	}
	used := normalize.Clamp(100-pr.Num, 0, 100)
	return percentLine("Premium", used, reset), true
}

func limitedLine(label string, remaining, total gjson.Result, reset *int64) (usage.Line, bool) {
	if remaining.Type != gjson.Number || total.Type != gjson.Number || total.Num <= 0 {
		return usage.Line{}, false
	}
	pct := math.Round((total.Num - remaining.Num) / total.Num * 100)
	return percentLine(label, normalize.Clamp(pct, 0, 100), reset), true
}

func percentLine(label string, used float64, reset *int64) usage.Line {
	return usage.Progress(label, used, 100, usage.Percent()).WithReset(reset).WithPeriod(periodMs)
}

func budgetLine(b budgetSummary, reset *int64) (usage.Line, bool) {
	if b.limit <= 0 {
		return usage.Line{}, false
	}
	return usage.Progress("Budget", math.Max(0, b.used), b.limit, usage.Dollars()).
		WithReset(reset).WithPeriod(periodMs), true
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate reads an ISO date, date-time or epoch value.
func parseDate(r gjson.Result) *int64 {
	if r.Type == gjson.Number {
		ms := normalize.ScaleEpoch(r.Num)
		return &ms
	}
	s, ok := coerce.String(r)
	if !ok {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ms := t.UnixMilli()
			return &ms
		}
	}
	return nil
}
