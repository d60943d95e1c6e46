// Package cache keeps the last successful probe result per provider so
// repeated status calls inside the TTL do not hit vendor APIs.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tnunamak/usagemeter/internal/config"
	"github.com/tnunamak/usagemeter/internal/usage"
)

// ErrMiss is returned when nothing is cached for a provider.
var ErrMiss = errors.New("cache miss")

type Entry struct {
	Result    usage.Result `json:"result"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// IsValid reports whether the entry is younger than ttl at now.
func (e *Entry) IsValid(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store reads and writes cached results.
type Store interface {
	Read(ctx context.Context, provider string) (*Entry, error)
	Write(ctx context.Context, provider string, res usage.Result) error
}

// Noop caches nothing.
type Noop struct{}

func (Noop) Read(context.Context, string) (*Entry, error)      { return nil, ErrMiss }
func (Noop) Write(context.Context, string, usage.Result) error { return nil }

// New builds the store selected by cfg.Backend.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return &FileStore{Dir: cfg.Dir}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStore(client, cfg.TTL), nil
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Fresh returns the cached entry for provider when it is still within ttl.
func Fresh(ctx context.Context, s Store, provider string, ttl time.Duration) (*Entry, bool) {
	entry, err := s.Read(ctx, provider)
	if err != nil || !entry.IsValid(ttl, time.Now()) {
		return nil, false
	}
	return entry, true
}
