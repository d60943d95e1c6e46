package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/app"
	"github.com/tnunamak/usagemeter/internal/cache"
	"github.com/tnunamak/usagemeter/internal/config"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/host/hosttest"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/provider"
	"github.com/tnunamak/usagemeter/internal/server"
	"github.com/tnunamak/usagemeter/internal/usage"
)

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

func newServer(t *testing.T, ps ...provider.Provider) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	a := &app.App{
		Config: &config.Config{
			StateDir: dir,
			Cache:    config.CacheConfig{TTL: time.Minute},
		},
		Registry: provider.NewRegistry(ps...),
		Host:     hosttest.New(nil, nil),
		Cache:    &cache.FileStore{Dir: filepath.Join(dir, "cache")},
	}
	ts := httptest.NewServer(server.New(a).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestProviders(t *testing.T) {
	ts := newServer(t, &fakeProvider{id: "minimax"}, &fakeProvider{id: "claude"})
	status, body := get(t, ts.URL+"/v1/providers")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"providers":[{"id":"claude","name":"CLAUDE"},{"id":"minimax","name":"MINIMAX"}]}`, body)
}

func TestProbeSuccessAndCache(t *testing.T) {
	mm := &fakeProvider{id: "minimax", res: usage.Result{
		Plan:  "Max (CN)",
		Lines: []usage.Line{usage.Progress("Session", 3, 10, usage.Count("prompts"))},
	}}
	ts := newServer(t, mm)

	status, body := get(t, ts.URL+"/v1/probe/minimax")
	require.Equal(t, http.StatusOK, status)
	var rep struct {
		Provider string       `json:"provider"`
		Cached   bool         `json:"cached"`
		Result   usage.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &rep))
	assert.Equal(t, "minimax", rep.Provider)
	assert.False(t, rep.Cached)
	assert.Equal(t, "Max (CN)", rep.Result.Plan)

	_, body = get(t, ts.URL+"/v1/probe/minimax")
	require.NoError(t, json.Unmarshal([]byte(body), &rep))
	assert.True(t, rep.Cached)
	assert.Equal(t, 1, mm.calls)

	_, _ = get(t, ts.URL+"/v1/probe/minimax?cache=false")
	assert.Equal(t, 2, mm.calls)

	status, _ = get(t, ts.URL+"/v1/probe/minimax?cache=maybe")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProbeFailure(t *testing.T) {
	ts := newServer(t, &fakeProvider{id: "copilot", err: probeerr.Network("Request failed. Check your connection.")})
	status, body := get(t, ts.URL+"/v1/probe/copilot")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.JSONEq(t, `{"error":"Request failed. Check your connection."}`, body)
}

func TestProbeUnknown(t *testing.T) {
	ts := newServer(t)
	status, body := get(t, ts.URL+"/v1/probe/gemini")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"provider \"gemini\" is not enabled"}`, body)
}

func TestMetricsAndHealth(t *testing.T) {
	ts := newServer(t, &fakeProvider{id: "metrics-probe", res: usage.Result{
		Lines: []usage.Line{usage.Progress("Weekly", 40, 100, usage.Percent())},
	}})
	_, _ = get(t, ts.URL+"/v1/probe/metrics-probe")

	status, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `usagemeter_probe_total{provider="metrics-probe",result="ok"} 1`)
	assert.Contains(t, body, `usagemeter_line_used{label="Weekly",provider="metrics-probe"} 40`)

	status, body = get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}
