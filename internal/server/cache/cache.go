// Package cache memoises comparison results keyed by the content of both
// inputs, so re-uploading the same pair skips extraction.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/diff"
	"github.com/redis/go-redis/v9"
)

// CompareCache stores diff results.
type CompareCache interface {
	Get(ctx context.Context, key string) (*diff.Result, bool, error)
	Set(ctx context.Context, key string, res *diff.Result) error
	Close() error
}

// CompareKey identifies an ordered pair of documents. Swapping the inputs
// gives a different key since the result is not symmetric.
func CompareKey(data1, data2 []byte) string {
	h1 := sha256.Sum256(data1)
	h2 := sha256.Sum256(data2)
	return hex.EncodeToString(h1[:]) + ":" + hex.EncodeToString(h2[:])
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type RedisCompareCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCompareCache connects and pings Redis.
func NewRedisCompareCache(ctx context.Context, cfg RedisConfig) (*RedisCompareCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "pdtools:compare:"
	}

	return &RedisCompareCache{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (c *RedisCompareCache) Get(ctx context.Context, key string) (*diff.Result, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	res := &diff.Result{}
	if err := json.Unmarshal(b, res); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	if res.Differences == nil {
		res.Differences = []diff.Difference{}
	}

	return res, true, nil
}

func (c *RedisCompareCache) Set(ctx context.Context, key string, res *diff.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCompareCache) Close() error {
	return c.client.Close()
}

// NoOpCompareCache never hits. Used when Redis is not configured.
type NoOpCompareCache struct{}

func NewNoOpCompareCache() *NoOpCompareCache {
	return &NoOpCompareCache{}
}

func (NoOpCompareCache) Get(ctx context.Context, key string) (*diff.Result, bool, error) {
	return nil, false, nil
}

func (NoOpCompareCache) Set(ctx context.Context, key string, res *diff.Result) error {
	return nil
}

func (NoOpCompareCache) Close() error {
	return nil
}
