package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// cacheGenerationKey holds the counter shared by every replica; Purge keeps it.
const cacheGenerationKey = cacheKeyPrefix + "generation"

// redisCache shares cached reads between service replicas.
type redisCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// newRedisCache connects to redisURL, which may be a redis:// URL or a bare
// host:port.
func newRedisCache(ctx context.Context, redisURL string, log zerolog.Logger) (*redisCache, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{
			Addr: strings.TrimPrefix(redisURL, "redis://"),
		}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisCache{client: client, log: log.With().Str("component", "cache").Logger()}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	return b, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.SetEx(ctx, cacheKeyPrefix+key, value, ttl).Err()
}

func (c *redisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, cacheGenerationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading cache generation: %w", err)
	}
	return gen, nil
}

func (c *redisCache) Purge(ctx context.Context) error {
	if err := c.client.Incr(ctx, cacheGenerationKey).Err(); err != nil {
		return fmt.Errorf("advancing cache generation: %w", err)
	}

	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		if k := iter.Val(); k != cacheGenerationKey {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
