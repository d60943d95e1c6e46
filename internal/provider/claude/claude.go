// Package claude probes the Claude subscription usage windows through the
// OAuth token Claude Code stores locally.
package claude

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/coerce"
	"github.com/tnunamak/usagemeter/internal/credential"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/normalize"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/prober"
	"github.com/tnunamak/usagemeter/internal/usage"
)

const (
	ID = "claude"

	usageURL   = "https://api.anthropic.com/api/oauth/usage"
	betaHeader = "oauth-2025-04-20"
	timeout    = 5 * time.Second

	missingMessage = "Not logged in. Sign in to Claude Code first."
	expiredMessage = "Token expired. Open Claude Code to refresh."
	authMessage    = "Token invalid. Open Claude Code to sign in again."
)

// windows are the rate limit windows reported by the usage endpoint.
var windows = []struct {
	key    string
	label  string
	period time.Duration
}{
	{"five_hour", "Session", 5 * time.Hour},
	{"seven_day", "Weekly", 7 * 24 * time.Hour},
	{"seven_day_opus", "Opus", 7 * 24 * time.Hour},
}

type Provider struct {
	resolver *credential.Resolver
	prober   *prober.Prober
}

func New() *Provider {
	return &Provider{
		resolver: newResolver(),
		prober: &prober.Prober{
			Provider: ID,
			Timeout:  timeout,
			Messages: prober.DefaultMessages(authMessage),
		},
	}
}

func (p *Provider) ID() string   { return ID }
func (p *Provider) Name() string { return "Claude" }

func (p *Provider) Probe(ctx context.Context, h *host.Context) (usage.Result, error) {
	cred, ok := p.resolver.Resolve(h)
	if !ok {
		return usage.Result{}, probeerr.Auth(missingMessage)
	}
	if cred.Expired(h.Now()) {
		return usage.Result{}, probeerr.Auth(expiredMessage)
	}

	data, err := p.prober.TryCandidates(ctx, h, []string{usageURL}, map[string]string{
		"Authorization":  "Bearer " + cred.Value,
		"anthropic-beta": betaHeader,
		"Accept":         "application/json",
	})
	if err != nil {
		return usage.Result{}, err
	}

	res := usage.Result{Plan: usage.PlanLabel(cred.Plan)}
	for _, w := range windows {
		if line, ok := windowLine(data.Get(w.key), w.label, w.period); ok {
			res.Lines = append(res.Lines, line)
		}
	}
	if line, ok := extraLine(data.Get("extra_usage")); ok {
		res.Lines = append(res.Lines, line)
	}
	return res, nil
}

func windowLine(w gjson.Result, label string, period time.Duration) (usage.Line, bool) {
	if !w.IsObject() {
		return usage.Line{}, false
	}
	pct, ok := coerce.Number(w.Get("utilization"))
	if !ok {
		return usage.Line{}, false
	}
	line := usage.Progress(label, normalize.Clamp(pct, 0, 100), 100, usage.Percent()).
		WithPeriod(period.Milliseconds())
	if s, ok := coerce.String(w.Get("resets_at")); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ms := t.UnixMilli()
			line = line.WithReset(&ms)
		}
	}
	return line, true
}

// extraLine reports pay-as-you-go credits, which the API sends in cents.
func extraLine(extra gjson.Result) (usage.Line, bool) {
	if !extra.Get("is_enabled").Bool() {
		return usage.Line{}, false
	}
	limit, ok := coerce.Number(extra.Get("monthly_limit"))
	if !ok || limit <= 0 {
		return usage.Line{}, false
	}
	used, _ := coerce.Number(extra.Get("used_credits"))
	limit = limit / 100
	return usage.Progress("Extra", max(0, usage.Round2(used/100)), limit, usage.Dollars()), true
}
