package cache

import (
	"context"
	"time"
)

// Store is the backing key-value store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get reports ok=false on a miss or an expired entry.
	Get(ctx context.Context, region Region, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, region Region, key string, value []byte, ttl time.Duration) error
	// EvictRegion drops every entry of the region.
	EvictRegion(ctx context.Context, region Region) error
}
