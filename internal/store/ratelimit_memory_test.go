package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMemoryStore(t *testing.T) {
	t.Run("admits and counts prior entries", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		s := store.NewRateLimitMemoryStore(clock)

		for want := int64(0); want < 3; want++ {
			res, err := s.Reserve(context.Background(), "key1", 10, time.Minute)

			require.NoError(t, err)
			assert.True(t, res.Admitted)
			assert.Equal(t, want, res.Prior)
		}
	})

	t.Run("rejects at the limit without recording", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		s := store.NewRateLimitMemoryStore(clock)

		for range 2 {
			_, err := s.Reserve(context.Background(), "key1", 2, time.Minute)
			require.NoError(t, err)
		}

		res, err := s.Reserve(context.Background(), "key1", 2, time.Minute)

		require.NoError(t, err)
		assert.False(t, res.Admitted)
		assert.Equal(t, int64(2), res.Prior)

		// A rejected attempt leaves the count unchanged.
		res, err = s.Reserve(context.Background(), "key1", 2, time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Prior)
	})

	t.Run("reports the oldest surviving entry on rejection", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		s := store.NewRateLimitMemoryStore(clock)

		first := clock.Now()

		_, err := s.Reserve(context.Background(), "key1", 2, time.Minute)
		require.NoError(t, err)

		clock.Advance(10 * time.Second)

		_, err = s.Reserve(context.Background(), "key1", 2, time.Minute)
		require.NoError(t, err)

		res, err := s.Reserve(context.Background(), "key1", 2, time.Minute)

		require.NoError(t, err)
		require.False(t, res.Admitted)
		assert.Equal(t, first, res.Oldest)
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		s := store.NewRateLimitMemoryStore(clock)

		_, _ = s.Reserve(context.Background(), "key1", 10, time.Minute)
		_, _ = s.Reserve(context.Background(), "key1", 10, time.Minute)

		res, err := s.Reserve(context.Background(), "key2", 10, time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Prior, "key2 should have its own counter")
	})

	t.Run("prunes expired entries", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		s := store.NewRateLimitMemoryStore(clock)

		_, _ = s.Reserve(context.Background(), "key1", 10, time.Minute)
		_, _ = s.Reserve(context.Background(), "key1", 10, time.Minute)

		clock.Advance(time.Minute + time.Second)

		res, err := s.Reserve(context.Background(), "key1", 10, time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Prior, "expired entries should be pruned")
	})
}
