// Package app wires configuration, providers, the result cache and
// history together. The CLI and the HTTP server both probe through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/tnunamak/usagemeter/internal/api"
	"github.com/tnunamak/usagemeter/internal/cache"
	"github.com/tnunamak/usagemeter/internal/config"
	"github.com/tnunamak/usagemeter/internal/history"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/provider"
	"github.com/tnunamak/usagemeter/internal/provider/claude"
	"github.com/tnunamak/usagemeter/internal/provider/copilot"
	"github.com/tnunamak/usagemeter/internal/provider/minimax"
	"github.com/tnunamak/usagemeter/internal/usage"
)

type App struct {
	Config   *config.Config
	Registry *provider.Registry
	Host     *host.Context
	Cache    cache.Store
	// History is optional; nil disables recording.
	History *history.Store
	Now     func() time.Time
}

// Report is the outcome of probing one provider.
type Report struct {
	Provider  string        `json:"provider"`
	Name      string        `json:"name"`
	Result    *usage.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Kind      probeerr.Kind `json:"-"`
	Cached    bool          `json:"cached"`
	FetchedAt time.Time     `json:"fetched_at,omitzero"`
}

func (r Report) Failed() bool { return r.Error != "" }

// BuildRegistry creates the providers enabled in cfg.
func BuildRegistry(cfg *config.Config) (*provider.Registry, error) {
	var ps []provider.Provider
	for _, id := range cfg.Providers {
		switch id {
		case claude.ID:
			ps = append(ps, claude.New())
		case copilot.ID:
			ps = append(ps, copilot.New(cfg.Copilot.BudgetUSD))
		case minimax.ID:
			ps = append(ps, minimax.New(cfg.MiniMax.Region))
		default:
			return nil, fmt.Errorf("unknown provider %q (known: %v)", id, config.KnownProviders)
		}
	}
	return provider.NewRegistry(ps...), nil
}

// NewHost returns a host context backed by the real machine.
func NewHost(logger *slog.Logger) *host.Context {
	return &host.Context{
		Env:     host.OSEnv{},
		Secrets: host.NewKeyringStore(),
		Files:   host.DiskFiles{},
		HTTP:    api.NewClient(),
		Clock:   host.SystemClock,
		Logger:  logger,
	}
}

// New opens the cache and history stores named by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	reg, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config:   cfg,
		Registry: reg,
		Host:     NewHost(logger),
		Cache:    store,
		Now:      time.Now,
	}
	if cfg.History.Path != "" {
		hist, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		app.History = hist
	}
	return app, nil
}

func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}

// Time returns the app clock.
func (a *App) Time() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Select resolves ids to providers; no ids means every enabled provider.
func (a *App) Select(ids []string) ([]provider.Provider, error) {
	if len(ids) == 0 {
		ids = a.Registry.IDs()
	}
	var out []provider.Provider
	var errs []error
	for _, id := range slices.Compact(slices.Clone(ids)) {
		p, ok := a.Registry.Get(id)
		if !ok {
			errs = append(errs, fmt.Errorf("provider %q is not enabled", id))
			continue
		}
		out = append(out, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(out) == 0 {
		return nil, errors.New("no providers enabled")
	}
	return out, nil
}

// Probe returns a cached result when useCache is set and the entry is
// fresh, and otherwise runs the provider. Fresh results are written to the
// cache and appended to history.
func (a *App) Probe(ctx context.Context, p provider.Provider, useCache bool) Report {
	id := p.ID()
	rep := Report{Provider: id, Name: p.Name()}

	if useCache {
		if entry, ok := cache.Fresh(ctx, a.Cache, id, a.Config.Cache.TTL); ok {
			rep.Result = &entry.Result
			rep.Cached = true
			rep.FetchedAt = entry.FetchedAt
			return rep
		}
	}

	h := a.Host.WithProvider(id, a.Config.ProviderDataDir(id))
	res, err := provider.Run(ctx, p, h)
	if err != nil {
		rep.Error = err.Error()
		var failure *provider.Failure
		if errors.As(err, &failure) {
			rep.Kind = failure.Kind
		}
		return rep
	}
	rep.Result = &res
	rep.FetchedAt = a.Time()

	if err := a.Cache.Write(ctx, id, res); err != nil {
		slog.Warn("cache write failed", "provider", id, "error", err)
	}
	if a.History != nil {
		if _, err := a.History.Append(ctx, id, res, rep.FetchedAt); err != nil {
			slog.Warn("history append failed", "provider", id, "error", err)
		}
	}
	return rep
}

// ProbeAll probes providers one after another.
func (a *App) ProbeAll(ctx context.Context, ps []provider.Provider, useCache bool) []Report {
	reports := make([]Report, 0, len(ps))
	for _, p := range ps {
		reports = append(reports, a.Probe(ctx, p, useCache))
	}
	return reports
}
