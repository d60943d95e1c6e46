// Package minimax probes the MiniMax Coding Plan quota in the global and
// mainland China realms.
package minimax

import (
	"context"
	"time"

	"github.com/tnunamak/usagemeter/internal/credential"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/normalize"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/prober"
	"github.com/tnunamak/usagemeter/internal/usage"
)

const (
	ID = "minimax"

	authMessage    = "Session expired. Check your MiniMax API key."
	missingMessage = "MiniMax API key missing. Set MINIMAX_API_KEY or MINIMAX_CN_API_KEY."
	parseMessage   = "Could not parse usage data."

	cnKeyEnv       = "MINIMAX_CN_API_KEY"
	callsPerPrompt = 15
	requestTimeout = 15 * time.Second
)

// Realm is one account region with its own keys and endpoints.
type Realm struct {
	Name    string
	URLs    []string
	EnvKeys []string
	Tiers   normalize.TierTable
	// DisplayDivisor converts reported counts to prompts.
	DisplayDivisor int
}

var (
	Global = Realm{
		Name: "GLOBAL",
		URLs: []string{
			"https://api.minimax.io/v1/api/openplatform/coding_plan/remains",
			"https://api.minimax.io/v1/coding_plan/remains",
			"https://www.minimax.io/v1/api/openplatform/coding_plan/remains",
		},
		EnvKeys: []string{"MINIMAX_API_KEY", "MINIMAX_API_TOKEN"},
		Tiers: normalize.TierTable{
			Names:   map[int]string{100: "Starter", 300: "Plus", 1000: "Max", 2000: "Ultra"},
			Divisor: callsPerPrompt,
		},
		DisplayDivisor: 1,
	}
	// CN reports model calls, fifteen per prompt.
	CN = Realm{
		Name: "CN",
		URLs: []string{
			"https://api.minimaxi.com/v1/api/openplatform/coding_plan/remains",
			"https://api.minimaxi.com/v1/coding_plan/remains",
		},
		EnvKeys: []string{cnKeyEnv, "MINIMAX_API_KEY", "MINIMAX_API_TOKEN"},
		Tiers: normalize.TierTable{
			Names: map[int]string{600: "Starter", 1500: "Plus", 4500: "Max"},
		},
		DisplayDivisor: callsPerPrompt,
	}
)

func realmByName(name string) Realm {
	if name == CN.Name {
		return CN
	}
	return Global
}

// Provider probes MiniMax. Region is "auto", "global" or "cn".
type Provider struct {
	Region string
	prober *prober.Prober
}

func New(region string) *Provider {
	if region == "" {
		region = credential.RealmAuto
	}
	return &Provider{
		Region: region,
		prober: &prober.Prober{
			Provider: ID,
			Timeout:  requestTimeout,
			Messages: prober.DefaultMessages(authMessage),
		},
	}
}

func (p *Provider) ID() string   { return ID }
func (p *Provider) Name() string { return "MiniMax" }

// Probe walks the realms in order. The first realm that yields a record wins
// and the first error from any realm is what gets reported otherwise.
func (p *Provider) Probe(ctx context.Context, h *host.Context) (usage.Result, error) {
	var firstErr error
	remember := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, name := range credential.SelectRealms(h, p.Region, Global.Name, CN.Name, cnKeyEnv) {
		realm := realmByName(name)
		resolver := credential.Resolver{Sources: []credential.Locator{credential.EnvSource{Names: realm.EnvKeys}}}
		cred, ok := resolver.Resolve(h)
		if !ok {
			h.Log().Debug("no api key for realm", "realm", realm.Name)
			continue
		}

		payload, err := p.prober.TryCandidates(ctx, h, realm.URLs, headers(cred.Value))
		if err != nil {
			remember(err)
			continue
		}
		rec, ok, err := Normalize(payload, realm, h.Now().UnixMilli())
		if err != nil {
			remember(err)
			continue
		}
		if !ok {
			h.Log().Warn("usage payload had no usable quota", "realm", realm.Name)
			remember(probeerr.DataUnavailable(parseMessage))
			continue
		}
		return result(rec, realm), nil
	}

	if firstErr != nil {
		return usage.Result{}, firstErr
	}
	return usage.Result{}, probeerr.Auth(missingMessage)
}

func headers(key string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + key,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

func result(rec usage.Record, realm Realm) usage.Result {
	line := usage.BuildLine(rec, usage.LineSpec{
		Label:          "Session",
		Format:         usage.Count("prompts"),
		DisplayDivisor: realm.DisplayDivisor,
	})
	res := usage.Result{Lines: []usage.Line{line}}
	if rec.PlanName != "" {
		res.Plan = rec.PlanName + " (" + realm.Name + ")"
	}
	return res
}
