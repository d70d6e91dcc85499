package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const statsCacheKey = "stats:orders:global"

// StatsCache serves order stats from Redis, collapsing concurrent cache
// misses into a single load.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns cached stats, invoking loader on a miss. Redis errors on
// read fall through to the loader; errors on write are ignored so a
// degraded cache never blocks the endpoint.
func (c *StatsCache) Get(ctx context.Context, loader func(context.Context) (Stats, error)) (Stats, error) {
	if raw, err := c.client.Get(ctx, statsCacheKey).Bytes(); err == nil {
		var stats Stats
		if err := json.Unmarshal(raw, &stats); err == nil {
			return stats, nil
		}
	}

	v, err, _ := c.group.Do(statsCacheKey, func() (any, error) {
		stats, err := loader(ctx)
		if err != nil {
			return Stats{}, err
		}
		if raw, err := json.Marshal(stats); err == nil {
			_ = c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err()
		}
		return stats, nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("orders: load stats: %w", err)
	}
	return v.(Stats), nil
}

// Invalidate drops the cached stats.
func (c *StatsCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, statsCacheKey).Err()
}

// Warm precomputes and stores stats. Used by the scheduled warmup job.
func (c *StatsCache) Warm(ctx context.Context, loader func(context.Context) (Stats, error)) error {
	stats, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("orders: marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("orders: store stats: %w", err)
	}
	return nil
}
