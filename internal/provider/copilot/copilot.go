// Package copilot probes GitHub Copilot premium request and free tier quotas.
package copilot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/credential"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/prober"
	"github.com/tnunamak/usagemeter/internal/usage"
)

const (
	ID = "copilot"

	CacheService = "usagemeter-copilot"
	ghService    = "gh:github.com"

	usageURL   = "https://api.github.com/copilot_internal/user"
	viewerURL  = "https://api.github.com/user"
	budgetsURL = "https://api.github.com/users/%s/settings/billing/budgets"

	apiVersion     = "2022-11-28"
	userAgent      = "GitHubCopilotChat/0.26.7"
	requestTimeout = 10 * time.Second

	// DefaultBudgetUSD is the monthly ceiling assumed when no budget is found.
	DefaultBudgetUSD = 40.0

	periodMs = int64(30 * 24 * time.Hour / time.Millisecond)
)

const (
	missingMessage = "Not logged in. Run `gh auth login` first."
	authMessage    = "Token invalid. Run `gh auth login` to re-authenticate."
)

func statePath(h *host.Context) string {
	return filepath.Join(h.DataDir, "auth.json")
}

// Provider probes Copilot with the gh CLI token or a cached copy of it.
type Provider struct {
	BudgetUSD float64
	resolver  *credential.Resolver
	prober    *prober.Prober
}

func New(budgetUSD float64) *Provider {
	if budgetUSD <= 0 {
		budgetUSD = DefaultBudgetUSD
	}
	cache := &credential.Cache{Service: CacheService, StatePath: statePath}
	return &Provider{
		BudgetUSD: budgetUSD,
		resolver: &credential.Resolver{
			Sources: []credential.Locator{
				credential.SecretSource{Source: credential.SourcePrimaryCache, Service: CacheService, Decode: credential.TokenJSON},
				credential.SecretSource{Source: credential.SourceCompanionCLI, Service: ghService, Decode: credential.KeyringBase64},
				credential.FileSource{Path: statePath},
			},
			Cache: cache,
		},
		prober: &prober.Prober{
			Provider: ID,
			Timeout:  requestTimeout,
			Messages: prober.Messages{
				Auth: authMessage,
				HTTP: func(status int) string {
					return fmt.Sprintf("Usage request failed (HTTP %d). Try again later.", status)
				},
				Network: "Usage request failed. Check your connection.",
				Parse:   "Usage response invalid. Try again later.",
			},
		},
	}
}

func (p *Provider) ID() string   { return ID }
func (p *Provider) Name() string { return "Copilot" }

func (p *Provider) Probe(ctx context.Context, h *host.Context) (usage.Result, error) {
	cred, ok := p.resolver.Resolve(h)
	if !ok {
		return usage.Result{}, probeerr.Auth(missingMessage)
	}

	data, err := p.fetchUsage(ctx, h, cred)
	if probeerr.Is(err, probeerr.KindAuth) && p.resolver.Invalidate(h, cred) {
		if next, ok := p.resolver.ResolveAfter(h, credential.SourcePrimaryCache); ok {
			h.Log().Info("retrying with fallback credential", "source", next.Source)
			data, err = p.fetchUsage(ctx, h, next)
			if err == nil {
				cred = next
			}
		}
	}
	if err != nil {
		return usage.Result{}, err
	}
	p.resolver.Persist(h, cred)
	h.Log().Info("usage fetch succeeded")

	res := usage.Result{Plan: usage.PlanLabel(data.Get("copilot_plan").String())}

	if snapshots := data.Get("quota_snapshots"); snapshots.IsObject() {
		reset := parseDate(data.Get("quota_reset_date"))
		if line, ok := premiumLine(snapshots.Get("premium_interactions"), reset); ok {
			res.Lines = append(res.Lines, line)
		}
		summary, found := p.lookupBudget(ctx, h, cred.Value, data)
		if !found {
			summary = overageBudget(data, p.BudgetUSD)
		}
		if line, ok := budgetLine(summary, reset); ok {
			res.Lines = append(res.Lines, line)
		}
	}

	limited, monthly := data.Get("limited_user_quotas"), data.Get("monthly_quotas")
	if limited.IsObject() && monthly.IsObject() {
		reset := parseDate(data.Get("limited_user_reset_date"))
		for _, q := range []struct{ label, key string }{{"Chat", "chat"}, {"Completions", "completions"}} {
			if line, ok := limitedLine(q.label, limited.Get(q.key), monthly.Get(q.key), reset); ok {
				res.Lines = append(res.Lines, line)
			}
		}
	}
	return res, nil
}

func (p *Provider) fetchUsage(ctx context.Context, h *host.Context, cred credential.Credential) (gjson.Result, error) {
	headers := githubHeaders(cred.Value)
	headers["Editor-Version"] = "vscode/1.96.2"
	headers["Editor-Plugin-Version"] = "copilot-chat/0.26.7"
	return p.prober.TryCandidates(ctx, h, []string{usageURL}, headers)
}

func githubHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization":        "token " + token,
		"Accept":               "application/json",
		"User-Agent":           userAgent,
		"X-Github-Api-Version": apiVersion,
	}
}
