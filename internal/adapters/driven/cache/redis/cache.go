// Package redis provides a Redis-backed retrieval result cache.
package redis

import (
	"context"
	"crypto/md5" //nolint:gosec // cache key hashing, not security
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/retriva/internal/core/domain"
	"github.com/custodia-labs/retriva/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResultCache = (*Cache)(nil)

// DefaultTTL bounds how long a cached ranking may outlive the state of
// the indexes it was computed from.
const DefaultTTL = time.Hour

// keyPrefix namespaces every cache entry so Purge can drop them without
// touching unrelated keys in a shared Redis.
const keyPrefix = "retriva:result:"

// Config holds the Redis connection settings.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is the optional AUTH password.
	Password string

	// DB is the Redis database number.
	DB int

	// TTL is the entry lifetime (default one hour).
	TTL time.Duration
}

// Cache stores serialized RankedSets under md5-hashed query keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates the cache and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// Get returns the cached result for the key, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*domain.RankedSet, error) {
	data, err := c.client.Get(ctx, hashKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: get: %w", err)
	}

	var set domain.RankedSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("redis: decode cached result: %w", err)
	}
	return &set, nil
}

// Set stores a result under the key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, set *domain.RankedSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("redis: encode result: %w", err)
	}

	if err := c.client.Set(ctx, hashKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Purge drops every cached result. Entries are enumerated with SCAN so
// a big cache never blocks the server the way KEYS would.
func (c *Cache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// hashKey turns an arbitrary query key into a fixed-size Redis key.
func hashKey(key string) string {
	sum := md5.Sum([]byte(key)) //nolint:gosec // cache key hashing, not security
	return keyPrefix + hex.EncodeToString(sum[:])
}
