package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute), mr
}

func TestStatsCacheLoadsOnceWithinTTL(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return Stats{PaidOrders: 3, TotalValue: 42.5}, nil
	}

	stats, err := cache.Get(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.PaidOrders)
	require.Equal(t, 1, loads)

	stats, err = cache.Get(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 42.5, stats.TotalValue)
	require.Equal(t, 1, loads)
}

func TestStatsCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return Stats{PaidOrders: int64(loads)}, nil
	}

	_, err := cache.Get(ctx, loader)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	stats, err := cache.Get(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.PaidOrders)
	require.Equal(t, 2, loads)
}

func TestStatsCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (Stats, error) {
		loads++
		return Stats{}, nil
	}

	_, err := cache.Get(ctx, loader)
	require.NoError(t, err)
	cache.Invalidate(ctx)
	_, err = cache.Get(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestStatsCacheLoaderError(t *testing.T) {
	cache, _ := newTestCache(t)
	boom := errors.New("db down")

	_, err := cache.Get(context.Background(), func(context.Context) (Stats, error) {
		return Stats{}, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestStatsCacheWarm(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	err := cache.Warm(ctx, func(context.Context) (Stats, error) {
		return Stats{PaidOrders: 9}, nil
	})
	require.NoError(t, err)

	stats, err := cache.Get(ctx, func(context.Context) (Stats, error) {
		t.Fatal("loader should not run after warmup")
		return Stats{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(9), stats.PaidOrders)
}
