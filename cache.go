package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

// cacheKeyPrefix namespaces every key this service writes.
const cacheKeyPrefix = "ledger:"

// Cache stores rendered read results. Purge advances the generation before
// dropping keys under cacheKeyPrefix, so a value loaded under an older
// generation is never served again.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context) (uint64, error)
	Purge(ctx context.Context) error
	Close() error
}

// localCache keeps entries in process; used when Redis is not configured or
// not reachable.
type localCache struct {
	cache *ristretto.Cache
	gen   atomic.Uint64
}

func newLocalCache() (*localCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     64 << 20,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return &localCache{cache: c}, nil
}

func (c *localCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.cache.Get(cacheKeyPrefix + key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (c *localCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.cache.SetWithTTL(cacheKeyPrefix+key, value, int64(len(value)), ttl)
	// Sets are buffered; wait so a following Get observes the write.
	c.cache.Wait()
	return nil
}

func (c *localCache) Generation(context.Context) (uint64, error) {
	return c.gen.Load(), nil
}

func (c *localCache) Purge(context.Context) error {
	c.gen.Add(1)
	c.cache.Clear()
	return nil
}

func (c *localCache) Close() error {
	c.cache.Close()
	return nil
}
