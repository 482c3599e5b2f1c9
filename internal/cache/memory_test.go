package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s := NewMemoryStore(0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, RegionPollStats, "poll:1", []byte("a"), 20*time.Second))
	require.NoError(t, s.Put(ctx, RegionPollStats, "poll:2", []byte("b"), 20*time.Second))
	require.NoError(t, s.Put(ctx, RegionEventList, "page:0", []byte("c"), time.Minute))

	t.Run("hit within ttl", func(t *testing.T) {
		v, ok, err := s.Get(ctx, RegionPollStats, "poll:1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("a"), v)
	})

	t.Run("miss after ttl", func(t *testing.T) {
		now = now.Add(21 * time.Second)

		_, ok, err := s.Get(ctx, RegionPollStats, "poll:1")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, _ = s.Get(ctx, RegionEventList, "page:0")
		assert.True(t, ok)
	})

	t.Run("sweep drops expired entries", func(t *testing.T) {
		s.sweep()
		assert.Equal(t, 0, s.Len(RegionPollStats))
		assert.Equal(t, 1, s.Len(RegionEventList))
	})

	t.Run("evict region", func(t *testing.T) {
		require.NoError(t, s.EvictRegion(ctx, RegionEventList))

		_, ok, _ := s.Get(ctx, RegionEventList, "page:0")
		assert.False(t, ok)
	})
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	in := []byte("abc")
	require.NoError(t, s.Put(ctx, RegionQRImage, "k", in, time.Minute))
	in[0] = 'x'

	out, _, _ := s.Get(ctx, RegionQRImage, "k")
	assert.Equal(t, []byte("abc"), out)
}
