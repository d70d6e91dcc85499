// Package jobs defines the background tasks: stats cache warmup, stock
// expiry scans and idempotency key cleanup.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/galley-erp/galley-erp/internal/orders"
	"github.com/galley-erp/galley-erp/internal/shared"
	"github.com/galley-erp/galley-erp/internal/stockitems"
)

const (
	QueueDefault = "default"

	TaskStatsWarmup        = "orders:stats_warmup"
	TaskStockExpiryScan    = "stock:expiry_scan"
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// Deps carries the services the task handlers work against.
type Deps struct {
	Orders      *orders.Service
	Stats       *orders.StatsCache
	Stock       *stockitems.Service
	Idempotency *shared.IdempotencyStore
	Retention   time.Duration
	Logger      *slog.Logger
}

// HandleStatsWarmup recomputes the global order stats into the cache so
// the first dashboard request after a quiet period does not pay the
// aggregate query.
func (d Deps) HandleStatsWarmup(ctx context.Context, _ *asynq.Task) error {
	return d.Stats.Warm(ctx, func(ctx context.Context) (orders.Stats, error) {
		return d.Orders.GlobalStats(ctx, time.Now())
	})
}

// HandleStockExpiryScan marks stock items past their expiry date.
func (d Deps) HandleStockExpiryScan(ctx context.Context, _ *asynq.Task) error {
	n, err := d.Stock.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	d.Logger.InfoContext(ctx, "expiry scan done", slog.Int64("expired", n))
	return nil
}

// HandleIdempotencyCleanup purges idempotency keys past retention.
func (d Deps) HandleIdempotencyCleanup(ctx context.Context, _ *asynq.Task) error {
	cutoff := time.Now().Add(-d.Retention)
	n, err := d.Idempotency.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	d.Logger.InfoContext(ctx, "idempotency cleanup done", slog.Int64("purged", n))
	return nil
}
