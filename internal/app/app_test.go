package app_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/app"
	"github.com/tnunamak/usagemeter/internal/cache"
	"github.com/tnunamak/usagemeter/internal/config"
	"github.com/tnunamak/usagemeter/internal/history"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/host/hosttest"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/provider"
	"github.com/tnunamak/usagemeter/internal/usage"
)

var now = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

type fakeProvider struct {
	id    string
	res   usage.Result
	err   error
	calls int
}

func (f *fakeProvider) ID() string   { return f.id }
func (f *fakeProvider) Name() string { return strings.ToUpper(f.id) }
func (f *fakeProvider) Probe(context.Context, *host.Context) (usage.Result, error) {
	f.calls++
	return f.res, f.err
}

func sessionResult() usage.Result {
	reset := now.Add(2 * time.Hour).UnixMilli()
	return usage.Result{
		Plan: "Plus (GLOBAL)",
		Lines: []usage.Line{
			usage.Progress("Session", 120, 300, usage.Count("prompts")).WithReset(&reset).WithPeriod(5 * 3600 * 1000),
		},
	}
}

func newApp(t *testing.T, ps ...provider.Provider) *app.App {
	t.Helper()
	dir := t.TempDir()
	hist, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })
	return &app.App{
		Config: &config.Config{
			StateDir: dir,
			Cache:    config.CacheConfig{Backend: "file", Dir: filepath.Join(dir, "cache"), TTL: time.Minute},
		},
		Registry: provider.NewRegistry(ps...),
		Host:     hosttest.New(nil, nil),
		Cache:    &cache.FileStore{Dir: filepath.Join(dir, "cache")},
		History:  hist,
		Now:      func() time.Time { return now },
	}
}

func TestProbeWritesCacheAndHistory(t *testing.T) {
	mm := &fakeProvider{id: "minimax", res: sessionResult()}
	a := newApp(t, mm)
	ctx := context.Background()

	rep := a.Probe(ctx, mm, true)
	require.False(t, rep.Failed())
	assert.False(t, rep.Cached)
	assert.Equal(t, "Plus (GLOBAL)", rep.Result.Plan)
	assert.Equal(t, 1, mm.calls)

	rep = a.Probe(ctx, mm, true)
	assert.True(t, rep.Cached)
	assert.Equal(t, 1, mm.calls)

	rep = a.Probe(ctx, mm, false)
	assert.False(t, rep.Cached)
	assert.Equal(t, 2, mm.calls)

	samples, err := a.History.List(ctx, "minimax", 0)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestProbeFailureIsNotCached(t *testing.T) {
	cp := &fakeProvider{id: "copilot", err: probeerr.Auth("Not logged in. Run `gh auth login` first.")}
	a := newApp(t, cp)

	rep := a.Probe(context.Background(), cp, true)
	assert.True(t, rep.Failed())
	assert.Equal(t, "Not logged in. Run `gh auth login` first.", rep.Error)
	assert.Equal(t, probeerr.KindAuth, rep.Kind)

	_, err := a.Cache.Read(context.Background(), "copilot")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestSelect(t *testing.T) {
	a := newApp(t, &fakeProvider{id: "minimax"}, &fakeProvider{id: "claude"})

	ps, err := a.Select(nil)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "claude", ps[0].ID())

	_, err = a.Select([]string{"claude", "gemini"})
	assert.ErrorContains(t, err, `provider "gemini" is not enabled`)

	empty := newApp(t)
	_, err = empty.Select(nil)
	assert.ErrorContains(t, err, "no providers enabled")
}

func TestBuildRegistry(t *testing.T) {
	reg, err := app.BuildRegistry(&config.Config{Providers: []string{"minimax", "claude", "copilot"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "copilot", "minimax"}, reg.IDs())

	_, err = app.BuildRegistry(&config.Config{Providers: []string{"gemini"}})
	assert.ErrorContains(t, err, `unknown provider "gemini"`)
}

