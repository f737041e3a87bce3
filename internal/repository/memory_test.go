package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAvailabilityCache(t *testing.T) {
	cache := NewMemoryAvailabilityCache(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		day := testDay(1, "2026-03-14")
		require.NoError(t, cache.Set(ctx, day))

		got, err := cache.Get(ctx, 1, "2026-03-14")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, day, got)
	})

	t.Run("GetMiss", func(t *testing.T) {
		got, err := cache.Get(ctx, 99, "2026-03-14")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, testDay(2, "2026-03-15")))
		require.NoError(t, cache.Invalidate(ctx, 2, "2026-03-15"))

		got, _ := cache.Get(ctx, 2, "2026-03-15")
		assert.Nil(t, got)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		cache := NewMemoryAvailabilityCache(time.Millisecond)
		require.NoError(t, cache.Set(ctx, testDay(3, "2026-03-16")))

		time.Sleep(5 * time.Millisecond)

		got, err := cache.Get(ctx, 3, "2026-03-16")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
