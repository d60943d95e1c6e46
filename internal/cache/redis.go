package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tnunamak/usagemeter/internal/usage"
)

const keyPrefix = "usagemeter:result:"

// RedisStore shares cached results between hosts. Keys expire after TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) makeKey(provider string) string {
	return keyPrefix + provider
}

func (s *RedisStore) Read(ctx context.Context, provider string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.makeKey(provider)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", provider, err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", provider, err)
	}
	return &entry, nil
}

func (s *RedisStore) Write(ctx context.Context, provider string, res usage.Result) error {
	data, err := json.Marshal(Entry{Result: res, FetchedAt: time.Now()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.makeKey(provider), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", provider, err)
	}
	return nil
}
