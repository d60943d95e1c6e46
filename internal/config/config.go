// Package config loads usagemeter settings from defaults, an optional YAML
// file, USAGEMETER_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration.
type Config struct {
	Log       LogConfig     `mapstructure:"log"`
	StateDir  string        `mapstructure:"state_dir"`
	Providers []string      `mapstructure:"providers"`
	MiniMax   MiniMaxConfig `mapstructure:"minimax"`
	Copilot   CopilotConfig `mapstructure:"copilot"`
	Cache     CacheConfig   `mapstructure:"cache"`
	History   HistoryConfig `mapstructure:"history"`
	Server    ServerConfig  `mapstructure:"server"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MiniMaxConfig struct {
	// Region is auto, global or cn.
	Region string `mapstructure:"region"`
}

type CopilotConfig struct {
	BudgetUSD float64 `mapstructure:"budget_usd"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	Dir       string        `mapstructure:"dir"`
	RedisAddr string        `mapstructure:"redis_addr"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// KnownProviders are the provider ids this build can probe.
var KnownProviders = []string{"claude", "copilot", "minimax"}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("log.level", "warn")
	v.SetDefault("state_dir", filepath.Join(home, ".local", "state", "usagemeter"))
	v.SetDefault("providers", KnownProviders)
	v.SetDefault("minimax.region", "auto")
	v.SetDefault("copilot.budget_usd", 40.0)
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.ttl", 60*time.Second)
	v.SetDefault("cache.dir", filepath.Join(home, ".cache", "usagemeter"))
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("history.path", "")
	v.SetDefault("server.listen", "127.0.0.1:9464")
}

// SetupEnv maps USAGEMETER_CACHE_TTL style variables onto keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("USAGEMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the file at path (optional) on a fresh viper instance.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.normalize()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.MiniMax.Region = strings.ToLower(strings.TrimSpace(c.MiniMax.Region))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	// USAGEMETER_PROVIDERS arrives as one comma separated string.
	var ids []string
	for _, p := range c.Providers {
		for _, id := range strings.Split(p, ",") {
			if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
				ids = append(ids, id)
			}
		}
	}
	c.Providers = ids
	if c.History.Path == "" && c.StateDir != "" {
		c.History.Path = filepath.Join(c.StateDir, "history.db")
	}
}

// ProviderDataDir is the private state directory of one provider.
func (c *Config) ProviderDataDir(id string) string {
	return filepath.Join(c.StateDir, "providers", id)
}

// Validate collects every problem instead of stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}

	if c.StateDir == "" {
		errs = append(errs, errors.New("config: state_dir must not be empty"))
	}

	known := map[string]bool{}
	for _, id := range KnownProviders {
		known[id] = true
	}
	for _, id := range c.Providers {
		if !known[id] {
			errs = append(errs, fmt.Errorf("config: providers contains unknown provider %q", id))
		}
	}

	switch c.MiniMax.Region {
	case "auto", "global", "cn":
	default:
		errs = append(errs, fmt.Errorf("config: minimax.region must be one of [auto, global, cn], got %q", c.MiniMax.Region))
	}

	if c.Copilot.BudgetUSD <= 0 {
		errs = append(errs, fmt.Errorf("config: copilot.budget_usd must be positive, got %v", c.Copilot.BudgetUSD))
	}

	errs = append(errs, c.validateCache()...)
	errs = append(errs, validateListen("server.listen", c.Server.Listen)...)

	return errs
}

func (c *Config) validateCache() []error {
	var errs []error
	switch c.Cache.Backend {
	case "none":
		return nil
	case "file":
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("config: cache.dir must not be empty for the file backend"))
		}
	case "redis":
		errs = append(errs, validateListen("cache.redis_addr", c.Cache.RedisAddr)...)
	default:
		errs = append(errs, fmt.Errorf("config: cache.backend must be one of [file, redis, none], got %q", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("config: cache.ttl must be positive, got %s", c.Cache.TTL))
	}
	return errs
}

func validateListen(key, addr string) []error {
	if addr == "" {
		return []error{fmt.Errorf("config: %s must not be empty", key)}
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return []error{fmt.Errorf("config: %s must be a valid host:port address, got %q: %w", key, addr, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return []error{fmt.Errorf("config: %s port must be between 1 and 65535, got %q", key, portStr)}
	}
	return nil
}
