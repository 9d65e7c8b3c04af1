// Package cache holds short-lived API responses so repeated runs inside the
// TTL do not hit the upstream APIs again.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Cache stores opaque values with an expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Remember returns the cached value for key decoded into out, or calls fetch,
// stores its result and decodes that. Cache errors never fail the call.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if c != nil {
		raw, ok, err := c.Get(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Cache read failed")
		} else if ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			log.Debug().Str("key", key).Msg("Cache entry undecodable, refetching")
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	if c != nil {
		raw, err := json.Marshal(v)
		if err == nil {
			err = c.Set(ctx, key, raw, ttl)
		}
		if err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return v, nil
}

// ============ MEMORY ============

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process cache
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

// NewMemory creates an empty in-process cache
func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry{value: value, expires: m.now().Add(ttl)}
	return nil
}

// ============ REDIS ============

// Redis stores entries in a redis server under a key prefix
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "lobster:"}
}

// DialRedis parses a redis:// URL and pings the server
func DialRedis(ctx context.Context, rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedis(client), nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Close releases the underlying connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
