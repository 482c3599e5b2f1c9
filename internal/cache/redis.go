package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scanCount   = 500
	unlinkBatch = 500
)

// RedisStore keeps entries under "<namespace>:<region>:<key>" and expires
// them with native TTLs.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
	}
}

func (s *RedisStore) Get(ctx context.Context, region Region, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.key(region, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("s.client.Get -> %w", err)
	}

	return value, true, nil
}

func (s *RedisStore) Put(ctx context.Context, region Region, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(region, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("s.client.Set -> %w", err)
	}

	return nil
}

// EvictRegion scans the region prefix and unlinks matching keys in batches.
// On a cluster every master is scanned.
func (s *RedisStore) EvictRegion(ctx context.Context, region Region) error {
	pattern := s.regionPrefix(region) + "*"

	if cluster, ok := s.client.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return evictMatching(ctx, node, pattern)
		})
	}

	return evictMatching(ctx, s.client, pattern)
}

func evictMatching(ctx context.Context, client redis.Cmdable, pattern string) error {
	iter := client.Scan(ctx, 0, pattern, scanCount).Iterator()

	batch := make([]string, 0, unlinkBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch {
			if err := client.Unlink(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("client.Unlink -> %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("iter.Err -> %w", err)
	}

	if len(batch) > 0 {
		if err := client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("client.Unlink -> %w", err)
		}
	}

	return nil
}

func (s *RedisStore) regionPrefix(region Region) string {
	return s.namespace + ":" + string(region) + ":"
}

func (s *RedisStore) key(region Region, key string) string {
	return s.regionPrefix(region) + key
}
