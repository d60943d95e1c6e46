package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tnunamak/usagemeter/internal/app"
	"github.com/tnunamak/usagemeter/internal/forecast"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/usage"
)

const barWidth = 20

// Output formats for Status.
const (
	FormatAuto  = ""
	FormatColor = "color"
	FormatPlain = "plain"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitProbe = 1
	ExitSetup = 2
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	lowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	midStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	highStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type StatusOptions struct {
	Format  string
	NoCache bool
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Status probes the requested providers and prints the reports to w.
// Setup problems go to errw. It returns the process exit code.
func Status(ctx context.Context, a *app.App, ids []string, opts StatusOptions, w, errw io.Writer) int {
	ps, err := a.Select(ids)
	if err != nil {
		fmt.Fprintf(errw, "usagemeter: %v\n", err)
		return ExitSetup
	}
	reports := a.ProbeAll(ctx, ps, !opts.NoCache)

	format := opts.Format
	if format == FormatAuto {
		format = FormatPlain
		if isTTY(w) {
			format = FormatColor
		}
	}
	switch format {
	case FormatJSON:
		err = PrintJSON(w, reports)
	case FormatYAML:
		err = PrintYAML(w, reports)
	case FormatColor:
		PrintColor(w, reports, a.Time())
	default:
		PrintPlain(w, reports, a.Time())
	}
	if err != nil {
		fmt.Fprintf(errw, "usagemeter: %v\n", err)
		return ExitSetup
	}
	return ExitCode(reports)
}

// ExitCode is 0 when every report succeeded, 2 when a credential problem
// failed a probe and 1 for any other failure.
func ExitCode(reports []app.Report) int {
	code := ExitOK
	for _, r := range reports {
		if !r.Failed() {
			continue
		}
		if r.Kind == probeerr.KindAuth {
			return ExitSetup
		}
		code = ExitProbe
	}
	return code
}

type statusOutput struct {
	Providers []app.Report `json:"providers"`
}

func PrintJSON(w io.Writer, reports []app.Report) error {
	data, err := json.MarshalIndent(statusOutput{Providers: reports}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintYAML renders the same document as PrintJSON.
func PrintYAML(w io.Writer, reports []app.Report) error {
	return writeYAML(w, statusOutput{Providers: reports})
}

// writeYAML goes through JSON so field names match the JSON output.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func PrintPlain(w io.Writer, reports []app.Report, now time.Time) {
	for _, r := range reports {
		if r.Failed() {
			fmt.Fprintf(w, "%s: error: %s\n", r.Provider, r.Error)
			continue
		}
		var parts []string
		for _, l := range r.Result.Lines {
			parts = append(parts, plainLine(l, now))
		}
		head := r.Provider
		if r.Result.Plan != "" {
			head += " (" + r.Result.Plan + ")"
		}
		fmt.Fprintf(w, "%s: %s\n", head, strings.Join(parts, "  "))
	}
}

func plainLine(l usage.Line, now time.Time) string {
	if l.Type == usage.TypeBadge {
		return l.Label + ": " + l.Text
	}
	s := l.Label + ": " + FormatValue(l)
	if reset, ok := l.ResetTime(); ok {
		s += " (resets " + formatUntil(reset.Sub(now)) + ")"
	}
	return s
}

func PrintColor(w io.Writer, reports []app.Report, now time.Time) {
	for _, r := range reports {
		head := nameStyle.Render(r.Name)
		if r.Failed() {
			fmt.Fprintf(w, "%s  %s\n", head, errorStyle.Render(r.Error))
			continue
		}
		if r.Result.Plan != "" {
			head += "  " + dimStyle.Render(r.Result.Plan)
		}
		if r.Cached {
			head += "  " + dimStyle.Render("cached "+formatUntil(now.Sub(r.FetchedAt))+" ago")
		}
		fmt.Fprintln(w, head)
		width := labelWidth(r.Result.Lines)
		for _, l := range r.Result.Lines {
			fmt.Fprintln(w, "  "+colorLine(l, width, now))
		}
	}
}

func labelWidth(lines []usage.Line) int {
	n := 0
	for _, l := range lines {
		n = max(n, len(l.Label))
	}
	return n
}

func colorLine(l usage.Line, width int, now time.Time) string {
	label := fmt.Sprintf("%-*s", width, l.Label)
	if l.Type == usage.TypeBadge {
		style := lipgloss.NewStyle()
		if l.Color != "" {
			style = style.Foreground(lipgloss.Color(l.Color))
		}
		return label + "  " + style.Render(l.Text)
	}

	pct := l.Fraction() * 100
	style := levelStyle(pct)
	s := fmt.Sprintf("%s  %s  %s", label, style.Render(bar(pct)), FormatValue(l))
	if reset, ok := l.ResetTime(); ok {
		s += dimStyle.Render("  resets " + formatUntil(reset.Sub(now)))
	}
	if p, ok := forecast.Pace(l, now); ok {
		s += "  " + paceStyle(p.Status).Render(p.Indicator())
	}
	return s
}

func levelStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 80:
		return highStyle
	case pct >= 60:
		return midStyle
	default:
		return lowStyle
	}
}

func paceStyle(s forecast.Status) lipgloss.Style {
	switch s {
	case forecast.StatusBehind:
		return highStyle
	case forecast.StatusOnTrack:
		return midStyle
	default:
		return lowStyle
	}
}

func bar(pct float64) string {
	filled := int(math.Round(pct / 100 * barWidth))
	filled = min(max(filled, 0), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// FormatValue renders the used amount of a progress line in its format.
func FormatValue(l usage.Line) string {
	switch l.Format.Kind {
	case usage.KindPercent:
		return fmt.Sprintf("%.0f%%", l.Used)
	case usage.KindDollars:
		return fmt.Sprintf("$%.2f / $%.2f", l.Used, l.Limit)
	default:
		s := trimFloat(l.Used) + "/" + trimFloat(l.Limit)
		if l.Format.Suffix != "" {
			s += " " + l.Format.Suffix
		}
		return s
	}
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

func formatUntil(d time.Duration) string {
	if d < 0 {
		return "now"
	}
	return forecast.FormatDuration(d.Round(time.Minute))
}
