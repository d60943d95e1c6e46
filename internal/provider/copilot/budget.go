package copilot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/api"
	"github.com/tnunamak/usagemeter/internal/coerce"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/usage"
)

// costPerPremiumRequest is the list price of one premium request over quota.
const costPerPremiumRequest = 0.04

type budgetSummary struct {
	score int
	used  float64
	limit float64
}

// lookupBudget finds the user's Copilot budget. Every failure is logged and
// reported as not found so the caller can fall back to the overage estimate.
func (p *Provider) lookupBudget(ctx context.Context, h *host.Context, token string, data gjson.Result) (budgetSummary, bool) {
	log := h.Log()
	login, ok := loginFromUsage(data)
	if !ok {
		body, err := p.get(ctx, h, viewerURL, token)
		if err != nil {
			log.Warn("viewer request failed for budget lookup", "error", err)
			return budgetSummary{}, false
		}
		if login, ok = coerce.String(body.Get("login")); !ok {
			return budgetSummary{}, false
		}
	}

	body, err := p.get(ctx, h, fmt.Sprintf(budgetsURL, url.PathEscape(login)), token)
	if err != nil {
		log.Warn("budget request failed", "error", err)
		return budgetSummary{}, false
	}
	list := body
	if !list.IsArray() {
		list = body.Get("budgets")
	}
	return pickBudget(list)
}

func (p *Provider) get(ctx context.Context, h *host.Context, u, token string) (gjson.Result, error) {
	resp, err := h.HTTP.Do(ctx, api.Request{Method: http.MethodGet, URL: u, Headers: githubHeaders(token), Timeout: requestTimeout})
	if err != nil {
		return gjson.Result{}, err
	}
	if !resp.OK() {
		return gjson.Result{}, fmt.Errorf("status=%d", resp.Status)
	}
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, errors.New("invalid json")
	}
	return gjson.ParseBytes(resp.Body), nil
}

func loginFromUsage(data gjson.Result) (string, bool) {
	return coerce.FirstString(
		data.Get("login"),
		data.Get("user_login"),
		data.Get("username"),
		data.Get("user.login"),
	)
}

// pickBudget keeps the highest scoring budget, breaking ties by the larger limit.
func pickBudget(list gjson.Result) (budgetSummary, bool) {
	var best budgetSummary
	found := false
	if !list.IsArray() {
		return best, false
	}
	for _, entry := range list.Array() {
		limit, ok := coerce.Number(entry.Get("budget_limit"))
		if !ok || limit <= 0 {
			continue
		}
		used, ok := coerce.Number(entry.Get("current_budget"))
		if !ok {
			continue
		}
		score := budgetScore(entry)
		if score <= 0 {
			continue
		}
		if !found || score > best.score || (score == best.score && limit > best.limit) {
			best = budgetSummary{score: score, used: used, limit: limit}
			found = true
		}
	}
	return best, found
}

func budgetScore(entry gjson.Result) int {
	score := 0
	name := strings.ToLower(entry.Get("name").String())
	if strings.Contains(name, "premium request") {
		score = max(score, 60)
	}
	if strings.Contains(name, "copilot") {
		score = max(score, 50)
	}
	items := entry.Get("budget_items")
	if !items.IsArray() {
		return score
	}
	for _, item := range items.Array() {
		kind := strings.ToLower(item.Get("type").String())
		target := strings.ToLower(item.Get("target").String())
		premium := strings.Contains(target, "premium request")
		copilot := strings.Contains(target, "copilot")
		switch {
		case premium && kind == "sku":
			score = max(score, 100)
		case copilot && kind == "product":
			score = max(score, 90)
		case premium || copilot:
			score = max(score, 80)
		}
	}
	return score
}

// overageBudget estimates spend from premium requests beyond the quota.
func overageBudget(data gjson.Result, limit float64) budgetSummary {
	overage := 0.0
	if remaining, ok := coerce.Number(data.Get("quota_snapshots.premium_interactions.remaining")); ok {
		overage = max(0, -remaining)
	}
	return budgetSummary{used: usage.Round2(overage * costPerPremiumRequest), limit: limit}
}
