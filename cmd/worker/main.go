package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/galley-erp/galley-erp/internal/app"
	"github.com/galley-erp/galley-erp/internal/orders"
	"github.com/galley-erp/galley-erp/internal/platform/cache"
	"github.com/galley-erp/galley-erp/internal/platform/db"
	"github.com/galley-erp/galley-erp/internal/shared"
	"github.com/galley-erp/galley-erp/internal/stockitems"
	"github.com/galley-erp/galley-erp/jobs"
)

func main() {
	cfg, err := app.Load()
	if err != nil {
		slog.Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogFormat)

	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	audit := shared.NewAuditStore(pool)
	idem := shared.NewIdempotencyStore(pool)
	stockSvc := stockitems.NewService(stockitems.NewPGRepository(pool), audit, logger)
	statsCache := orders.NewStatsCache(redisClient, cfg.StatsCacheTTL)

	orderSvc := orders.NewService(orders.ServiceDeps{
		Repo:        orders.NewPGRepository(pool),
		Stock:       stockSvc,
		Locker:      shared.NewLocker(redisClient),
		Idempotency: idem,
		Audit:       audit,
		Logger:      logger,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{RedisAddr: cfg.RedisAddr}, jobs.Deps{
		Orders:      orderSvc,
		Stats:       statsCache,
		Stock:       stockSvc,
		Idempotency: idem,
		Retention:   cfg.IdempotencyRetention,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("worker init", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(); err != nil {
		logger.Error("worker", slog.Any("error", err))
		os.Exit(1)
	}
}
