// Package usage holds the canonical usage record and the display-agnostic
// lines a probe returns.
package usage

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Record is one normalized quota reading. Used is within [0, Total] and
// Total is positive; readers reject anything else.
type Record struct {
	PlanName         string
	Used             float64
	Total            float64
	ResetsAtMs       *int64
	PeriodDurationMs *int64
}

// Valid reports whether the record satisfies its invariants.
func (r Record) Valid() bool {
	return r.Total > 0 && !math.IsInf(r.Total, 0) && r.Used >= 0 && r.Used <= r.Total
}

type LineType string

const (
	TypeProgress LineType = "progress"
	TypeBadge    LineType = "badge"
)

type FormatKind string

const (
	KindCount   FormatKind = "count"
	KindPercent FormatKind = "percent"
	KindDollars FormatKind = "dollars"
)

type Format struct {
	Kind   FormatKind `json:"kind"`
	Suffix string     `json:"suffix,omitempty"`
}

func Count(suffix string) Format { return Format{Kind: KindCount, Suffix: suffix} }
func Percent() Format            { return Format{Kind: KindPercent} }
func Dollars() Format            { return Format{Kind: KindDollars} }

// Line is one row of a probe result.
type Line struct {
	Type             LineType `json:"type"`
	Label            string   `json:"label"`
	Used             float64  `json:"used"`
	Limit            float64  `json:"limit"`
	Format           Format   `json:"format"`
	ResetsAt         string   `json:"resetsAt,omitempty"`
	PeriodDurationMs int64    `json:"periodDurationMs,omitempty"`
	Text             string   `json:"text,omitempty"`
	Color            string   `json:"color,omitempty"`
}

// MarshalJSON drops the progress fields from badges.
func (l Line) MarshalJSON() ([]byte, error) {
	if l.Type == TypeBadge {
		return json.Marshal(struct {
			Type  LineType `json:"type"`
			Label string   `json:"label"`
			Text  string   `json:"text"`
			Color string   `json:"color,omitempty"`
		}{l.Type, l.Label, l.Text, l.Color})
	}
	type plain Line
	return json.Marshal(plain(l))
}

// Progress builds a progress line.
func Progress(label string, used, limit float64, format Format) Line {
	return Line{Type: TypeProgress, Label: label, Used: used, Limit: limit, Format: format}
}

// Badge builds a text badge line.
func Badge(label, text, color string) Line {
	return Line{Type: TypeBadge, Label: label, Text: text, Color: color}
}

// NoDataLine is returned when a probe succeeds with nothing to show.
func NoDataLine() Line {
	return Badge("Status", "No usage data", "#a3a3a3")
}

// WithReset sets ResetsAt from epoch milliseconds; nil leaves it unset.
func (l Line) WithReset(ms *int64) Line {
	if ms != nil {
		l.ResetsAt = ISO(*ms)
	}
	return l
}

// WithPeriod sets the quota window length.
func (l Line) WithPeriod(ms int64) Line {
	if ms > 0 {
		l.PeriodDurationMs = ms
	}
	return l
}

// ResetTime parses ResetsAt.
func (l Line) ResetTime() (time.Time, bool) {
	if l.ResetsAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, l.ResetsAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Period returns PeriodDurationMs as a duration.
func (l Line) Period() time.Duration {
	return time.Duration(l.PeriodDurationMs) * time.Millisecond
}

// Fraction is Used/Limit, or 0 for badges and zero limits.
func (l Line) Fraction() float64 {
	if l.Type != TypeProgress || l.Limit <= 0 {
		return 0
	}
	return l.Used / l.Limit
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ISO renders epoch milliseconds as UTC ISO-8601 with milliseconds.
func ISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

// Result is what a probe returns.
type Result struct {
	Plan  string `json:"plan,omitempty"`
	Lines []Line `json:"lines"`
}

// LineSpec says how to render a record.
type LineSpec struct {
	Label  string
	Format Format
	// DisplayDivisor > 1 divides used and total and rounds both.
	DisplayDivisor int
}

// BuildLine turns a record into a progress line.
func BuildLine(r Record, spec LineSpec) Line {
	used, total := r.Used, r.Total
	if spec.DisplayDivisor > 1 {
		d := float64(spec.DisplayDivisor)
		used = math.Round(used / d)
		total = math.Round(total / d)
	}
	l := Progress(spec.Label, used, total, spec.Format).WithReset(r.ResetsAtMs)
	if r.PeriodDurationMs != nil {
		l = l.WithPeriod(*r.PeriodDurationMs)
	}
	return l
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

var titleCaser = cases.Title(language.English)

// PlanLabel turns a vendor plan id such as "individual_pro" into "Individual Pro".
func PlanLabel(raw string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(raw))
	if len(words) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(words, " "))
}
