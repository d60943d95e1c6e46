package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"claude", "copilot", "minimax"}, cfg.Providers)
	assert.Equal(t, "auto", cfg.MiniMax.Region)
	assert.Equal(t, 40.0, cfg.Copilot.BudgetUSD)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "127.0.0.1:9464", cfg.Server.Listen)
	assert.Equal(t, filepath.Join(cfg.StateDir, "history.db"), cfg.History.Path)
	assert.Equal(t, filepath.Join(cfg.StateDir, "providers", "copilot"), cfg.ProviderDataDir("copilot"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usagemeter.yaml")
	content := `
state_dir: /tmp/um
providers: [minimax]
minimax:
  region: CN
cache:
  backend: redis
  redis_addr: "localhost:6380"
  ttl: 2m
copilot:
  budget_usd: 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/um", cfg.StateDir)
	assert.Equal(t, []string{"minimax"}, cfg.Providers)
	assert.Equal(t, "cn", cfg.MiniMax.Region)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 100.0, cfg.Copilot.BudgetUSD)
	assert.Equal(t, "/tmp/um/history.db", cfg.History.Path)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("USAGEMETER_SERVER_LISTEN", "0.0.0.0:8080")
	t.Setenv("USAGEMETER_PROVIDERS", "copilot, claude")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Listen)
	assert.Equal(t, []string{"copilot", "claude"}, cfg.Providers)
}

func TestMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Log:       config.LogConfig{Level: "loud"},
		StateDir:  "/tmp",
		Providers: []string{"minimax", "cursor"},
		MiniMax:   config.MiniMaxConfig{Region: "eu"},
		Copilot:   config.CopilotConfig{BudgetUSD: 0},
		Cache:     config.CacheConfig{Backend: "memcached", TTL: time.Minute},
		Server:    config.ServerConfig{Listen: "nope"},
	}
	errs := cfg.Validate()
	require.Len(t, errs, 6)

	joined := ""
	for _, err := range errs {
		joined += err.Error() + "\n"
	}
	for _, key := range []string{"log.level", "cursor", "minimax.region", "copilot.budget_usd", "cache.backend", "server.listen"} {
		assert.Contains(t, joined, key)
	}
}

func TestValidateRejectsBadTTLAndPort(t *testing.T) {
	cfg := &config.Config{
		Log:      config.LogConfig{Level: "info"},
		StateDir: "/tmp",
		MiniMax:  config.MiniMaxConfig{Region: "auto"},
		Copilot:  config.CopilotConfig{BudgetUSD: 1},
		Cache:    config.CacheConfig{Backend: "file", Dir: "/tmp/c", TTL: 0},
		Server:   config.ServerConfig{Listen: "127.0.0.1:70000"},
	}
	errs := cfg.Validate()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "cache.ttl")
	assert.Contains(t, errs[1].Error(), "server.listen")
}
