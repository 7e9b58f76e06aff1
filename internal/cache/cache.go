// Package cache stores encoded team views, in Redis or in process memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 6 * time.Hour

	// DefaultMaxEntries caps a Memory cache.
	DefaultMaxEntries = 1024
)

// RedisCache keeps values under their key with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache parses a redis:// URL. It does not connect; use Ping.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opts), ttl), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is a process-local cache with the same contract as RedisCache.
// Expired entries are swept on writes at most once per TTL, and when the cache
// is full the entry closest to expiry is evicted.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	data       map[string]entry
	nextSweep  time.Time
	now        func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, maxEntries: DefaultMaxEntries, data: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(e.expires) {
		delete(m.data, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(m.ttl)
	}
	if _, ok := m.data[key]; !ok && m.maxEntries > 0 && len(m.data) >= m.maxEntries {
		m.sweep(now)
		if len(m.data) >= m.maxEntries {
			m.evictOldest()
		}
	}
	m.data[key] = entry{value: append([]byte(nil), value...), expires: now.Add(m.ttl)}
	return nil
}

func (m *Memory) sweep(now time.Time) {
	for k, e := range m.data {
		if now.After(e.expires) {
			delete(m.data, k)
		}
	}
}

func (m *Memory) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for k, e := range m.data {
		if !found || e.expires.Before(at) {
			oldest, at, found = k, e.expires, true
		}
	}
	if found {
		delete(m.data, oldest)
	}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
