package claude_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/host/hosttest"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/provider/claude"
	"github.com/tnunamak/usagemeter/internal/usage"
)

const usageBody = `{
  "five_hour": {"utilization": 42.5, "resets_at": "2023-11-15T03:13:20.000Z"},
  "seven_day": {"utilization": 130, "resets_at": "2023-11-20T00:00:00Z"},
  "seven_day_opus": null,
  "extra_usage": {"is_enabled": true, "monthly_limit": 5000, "used_credits": 1234}
}`

const fileCreds = `{"claudeAiOauth":{"accessToken":"file-token","expiresAt":1800000000000,"subscriptionType":"max"}}`

func TestEnvTokenAndLines(t *testing.T) {
	h := hosttest.Always(hosttest.Reply{Status: 200, Body: usageBody})
	ctx := hosttest.New(map[string]string{"CLAUDE_CODE_OAUTH_TOKEN": "env-token"}, h)

	res, err := claude.New().Probe(context.Background(), ctx)
	require.NoError(t, err)

	call := h.Calls[0]
	assert.Equal(t, "https://api.anthropic.com/api/oauth/usage", call.URL)
	assert.Equal(t, "Bearer env-token", call.Headers["Authorization"])
	assert.Equal(t, "oauth-2025-04-20", call.Headers["anthropic-beta"])

	assert.Empty(t, res.Plan)
	require.Len(t, res.Lines, 3)

	session := res.Lines[0]
	assert.Equal(t, "Session", session.Label)
	assert.Equal(t, 42.5, session.Used)
	assert.Equal(t, 100.0, session.Limit)
	assert.Equal(t, usage.Percent(), session.Format)
	assert.Equal(t, "2023-11-15T03:13:20.000Z", session.ResetsAt)
	assert.Equal(t, int64(18000000), session.PeriodDurationMs)

	weekly := res.Lines[1]
	assert.Equal(t, "Weekly", weekly.Label)
	assert.Equal(t, 100.0, weekly.Used)
	assert.Equal(t, int64(604800000), weekly.PeriodDurationMs)

	extra := res.Lines[2]
	assert.Equal(t, "Extra", extra.Label)
	assert.Equal(t, 12.34, extra.Used)
	assert.Equal(t, 50.0, extra.Limit)
	assert.Equal(t, usage.Dollars(), extra.Format)
}

func TestCredentialsFile(t *testing.T) {
	h := hosttest.Always(hosttest.Reply{Status: 200, Body: `{"five_hour":{"utilization":1}}`})
	ctx := hosttest.New(map[string]string{"HOME": "/home/u"}, h)
	ctx.Files.(*hosttest.Files).Put("/home/u/.claude/.credentials.json", fileCreds)

	res, err := claude.New().Probe(context.Background(), ctx)
	require.NoError(t, err)
	assert.Equal(t, "Max", res.Plan)
	assert.Equal(t, "Bearer file-token", h.Calls[0].Headers["Authorization"])
	require.Len(t, res.Lines, 1)
}

func TestKeychainRawToken(t *testing.T) {
	h := hosttest.Always(hosttest.Reply{Status: 200, Body: `{}`})
	ctx := hosttest.New(map[string]string{"USER": "ada"}, h)
	require.NoError(t, ctx.Secrets.Set("Claude Code-credentials", "ada", "raw-token"))

	res, err := claude.New().Probe(context.Background(), ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.Equal(t, "Bearer raw-token", h.Calls[0].Headers["Authorization"])
}

func TestExpiredToken(t *testing.T) {
	h := hosttest.Always(hosttest.Reply{Status: 200, Body: usageBody})
	ctx := hosttest.New(map[string]string{"USER": "ada"}, h)
	require.NoError(t, ctx.Secrets.Set("Claude Code-credentials", "ada",
		`{"claudeAiOauth":{"accessToken":"old","expiresAt":1600000000000}}`))

	_, err := claude.New().Probe(context.Background(), ctx)
	require.Error(t, err)
	assert.True(t, probeerr.Is(err, probeerr.KindAuth))
	assert.Equal(t, "Token expired. Open Claude Code to refresh.", err.Error())
	assert.Empty(t, h.Calls)
}

func TestNotLoggedIn(t *testing.T) {
	_, err := claude.New().Probe(context.Background(), hosttest.New(nil, nil))
	require.Error(t, err)
	assert.True(t, probeerr.Is(err, probeerr.KindAuth))
}

func TestAuthWall(t *testing.T) {
	ctx := hosttest.New(map[string]string{"CLAUDE_CODE_OAUTH_TOKEN": "t"}, hosttest.Always(hosttest.Reply{Status: 403}))
	_, err := claude.New().Probe(context.Background(), ctx)
	assert.EqualError(t, err, "Token invalid. Open Claude Code to sign in again.")
}

func TestOpusAndDisabledExtra(t *testing.T) {
	body := `{"seven_day_opus":{"utilization":"12"},"extra_usage":{"is_enabled":false,"monthly_limit":5000}}`
	ctx := hosttest.New(map[string]string{"CLAUDE_CODE_OAUTH_TOKEN": "t"}, hosttest.Always(hosttest.Reply{Status: 200, Body: body}))
	res, err := claude.New().Probe(context.Background(), ctx)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "Opus", res.Lines[0].Label)
	assert.Equal(t, 12.0, res.Lines[0].Used)
	assert.Empty(t, res.Lines[0].ResetsAt)
}
