package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache is the read-through layer in front of a Store. Reads go through
// GetOrLoad, writes call Evict once their change is committed.
type Cache struct {
	store Store
	group singleflight.Group

	mu   sync.RWMutex
	ttls map[Region]time.Duration
	// gens counts evictions per region. A load that observed an older
	// generation does not write its result back.
	gens map[Region]uint64

	// fill orders write-backs against evictions: a write-back holds it shared
	// from the generation check through Put, Evict holds it exclusively.
	fill sync.RWMutex
}

func New(store Store, ttls map[Region]time.Duration) *Cache {
	if ttls == nil {
		ttls = DefaultTTLs()
	}

	return &Cache{
		store: store,
		ttls:  ttls,
		gens:  make(map[Region]uint64),
	}
}

func (c *Cache) TTL(region Region) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ttl, ok := c.ttls[region]; ok {
		return ttl
	}

	return DefaultTTL
}

// SetTTLs swaps the TTL table. Entries already stored keep their old expiry.
func (c *Cache) SetTTLs(ttls map[Region]time.Duration) {
	c.mu.Lock()
	c.ttls = ttls
	c.mu.Unlock()
}

func (c *Cache) generation(region Region) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gens[region]
}

// Evict drops every listed region. Failures are logged, never returned.
func (c *Cache) Evict(ctx context.Context, regions ...Region) {
	c.fill.Lock()
	defer c.fill.Unlock()

	for _, region := range regions {
		c.mu.Lock()
		c.gens[region]++
		c.mu.Unlock()

		if err := c.store.EvictRegion(ctx, region); err != nil {
			zap.L().Warn("failed to evict cache region",
				zap.String("region", string(region)),
				zap.Error(err),
			)
		}
	}
}

// writeBack stores encoded unless region was evicted after gen was read.
func (c *Cache) writeBack(ctx context.Context, region Region, key string, encoded []byte, gen uint64) {
	ttl := c.TTL(region)

	c.fill.RLock()
	defer c.fill.RUnlock()

	if c.generation(region) != gen {
		return
	}
	if err := c.store.Put(ctx, region, key, encoded, ttl); err != nil {
		zap.L().Warn("cache write failed",
			zap.String("region", string(region)),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// GetOrLoad returns the cached value of key in region, or computes it with
// load, stores it with the region TTL and returns it. Both paths return the
// decoded stored form so hits and misses are indistinguishable to callers.
func GetOrLoad[T any](ctx context.Context, c *Cache, region Region, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := c.store.Get(ctx, region, key)
	if err != nil {
		zap.L().Warn("cache read failed, loading from source",
			zap.String("region", string(region)),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	if ok {
		var v T
		if err = json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		zap.L().Warn("dropping undecodable cache entry",
			zap.String("region", string(region)),
			zap.String("key", key),
			zap.Error(err),
		)
	}

	gen := c.generation(region)
	flightKey := string(region) + "|" + strconv.FormatUint(gen, 10) + "|" + key

	shared, err, _ := c.group.Do(flightKey, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("json.Marshal -> %w", err)
		}

		c.writeBack(ctx, region, key, encoded, gen)

		return encoded, nil
	})
	if err != nil {
		return zero, err
	}

	var v T
	if err = json.Unmarshal(shared.([]byte), &v); err != nil {
		return zero, fmt.Errorf("json.Unmarshal -> %w", err)
	}

	return v, nil
}
