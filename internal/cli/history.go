package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tnunamak/usagemeter/internal/app"
	"github.com/tnunamak/usagemeter/internal/history"
)

// History prints the latest recorded samples for provider ("" for all).
func History(ctx context.Context, a *app.App, provider string, limit int, format string, w, errw io.Writer) int {
	if a.History == nil {
		fmt.Fprintln(errw, "usagemeter: history is disabled (history.path is empty)")
		return ExitSetup
	}
	samples, err := a.History.List(ctx, provider, limit)
	if err != nil {
		fmt.Fprintf(errw, "usagemeter: %v\n", err)
		return ExitProbe
	}
	switch format {
	case FormatJSON:
		err = printHistoryJSON(w, samples)
	case FormatYAML:
		err = writeYAML(w, historyOutput{Samples: samples})
	default:
		PrintHistory(w, samples)
	}
	if err != nil {
		fmt.Fprintf(errw, "usagemeter: %v\n", err)
		return ExitProbe
	}
	return ExitOK
}

type historyOutput struct {
	Samples []history.Sample `json:"samples"`
}

func printHistoryJSON(w io.Writer, samples []history.Sample) error {
	if samples == nil {
		samples = []history.Sample{}
	}
	data, err := json.MarshalIndent(historyOutput{Samples: samples}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintHistory writes one row per sample: time, provider and every line.
func PrintHistory(w io.Writer, samples []history.Sample) {
	if len(samples) == 0 {
		fmt.Fprintln(w, "no samples recorded")
		return
	}
	for _, s := range samples {
		var parts []string
		for _, l := range s.Result.Lines {
			parts = append(parts, plainLine(l, s.FetchedAt))
		}
		fmt.Fprintf(w, "%s  %-8s  %s\n", s.FetchedAt.Local().Format(time.DateTime), s.Provider, strings.Join(parts, "  "))
	}
}
