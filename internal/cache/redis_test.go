package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

// startRedis runs one Redis container per test binary. Tests skip when
// Docker is not reachable.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	redisOnce.Do(func() {
		pool, err := dockertest.NewPool("")
		if err != nil {
			redisErr = fmt.Errorf("dockertest.NewPool -> %w", err)
			return
		}
		if err = pool.Client.Ping(); err != nil {
			redisErr = fmt.Errorf("pool.Client.Ping -> %w", err)
			return
		}

		resource, err := pool.Run("redis", "7-alpine", nil)
		if err != nil {
			redisErr = fmt.Errorf("pool.Run -> %w", err)
			return
		}
		_ = resource.Expire(120)

		client := redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
		redisErr = pool.Retry(func() error {
			return client.Ping(context.Background()).Err()
		})
		redisClient = client
	})

	if redisErr != nil {
		t.Skipf("redis unavailable: %v", redisErr)
	}

	return redisClient
}

func TestRedisStore(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	s := NewRedisStore(client, "test-"+t.Name())

	require.NoError(t, s.Put(ctx, RegionPollStats, "poll:1", []byte(`{"a":1}`), time.Minute))
	require.NoError(t, s.Put(ctx, RegionPollStats, "poll:2", []byte(`{"a":2}`), time.Minute))
	require.NoError(t, s.Put(ctx, RegionPollDetail, "poll:1", []byte(`{"b":1}`), time.Minute))

	v, ok, err := s.Get(ctx, RegionPollStats, "poll:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(v))

	require.NoError(t, s.EvictRegion(ctx, RegionPollStats))

	_, ok, err = s.Get(ctx, RegionPollStats, "poll:2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, RegionPollDetail, "poll:1")
	require.NoError(t, err)
	assert.True(t, ok, "other regions survive")
}

func TestRedisStore_EvictManyKeys(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	s := NewRedisStore(client, "test-"+t.Name())

	for i := 0; i < 1200; i++ {
		require.NoError(t, s.Put(ctx, RegionEventList, fmt.Sprintf("page:%d", i), []byte("x"), time.Minute))
	}

	require.NoError(t, s.EvictRegion(ctx, RegionEventList))

	keys, err := client.Keys(ctx, s.regionPrefix(RegionEventList)+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_Expiry(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	s := NewRedisStore(client, "test-"+t.Name())

	require.NoError(t, s.Put(ctx, RegionQRImage, "event:1", []byte("png"), time.Second))

	ttl, err := client.TTL(ctx, s.key(RegionQRImage, "event:1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Second)
}
