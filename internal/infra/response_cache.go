package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache stores raw HTTP response bodies keyed by URL.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryCache adapts Cache to ResponseCache.
type MemoryCache struct {
	c *Cache
}

// NewMemoryCache creates a process-local response cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: NewCache(ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	return v, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.c.SetWithTTL(key, value, ttl)
	return nil
}

// Cleanup drops expired entries.
func (m *MemoryCache) Cleanup() { m.c.Cleanup() }

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int { return m.c.Len() }

// RedisCache is a ResponseCache shared between runs and hosts.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisCache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCacheFromClient(client, opts.Prefix), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.wrapKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) wrapKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// LayeredCache reads through a fast local layer before a shared one and
// back-fills the local layer on shared hits.
type LayeredCache struct {
	local  ResponseCache
	shared ResponseCache
	ttl    time.Duration
}

// NewLayeredCache creates a two-level cache. localTTL bounds back-filled
// entries.
func NewLayeredCache(local, shared ResponseCache, localTTL time.Duration) *LayeredCache {
	return &LayeredCache{local: local, shared: shared, ttl: localTTL}
}

func (l *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := l.local.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	v, ok, err := l.shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.local.Set(ctx, key, v, l.ttl)
	return v, true, nil
}

func (l *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := ttl
	if l.ttl < localTTL {
		localTTL = l.ttl
	}
	_ = l.local.Set(ctx, key, value, localTTL)
	return l.shared.Set(ctx, key, value, ttl)
}
