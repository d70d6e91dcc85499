package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/galley-erp/galley-erp/internal/app"
	"github.com/galley-erp/galley-erp/internal/identity"
	"github.com/galley-erp/galley-erp/internal/observability"
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
	locker := shared.NewLocker(redisClient)
	metrics := observability.New()

	jobsClient := jobs.NewClient(cfg.RedisAddr)
	defer jobsClient.Close()

	tokens := identity.NewPGTokenStore(pool)
	identityMw := identity.NewMiddleware(tokens)

	stockSvc := stockitems.NewService(stockitems.NewPGRepository(pool), audit, logger)
	statsCache := orders.NewStatsCache(redisClient, cfg.StatsCacheTTL)

	orderSvc := orders.NewService(orders.ServiceDeps{
		Repo:          orders.NewPGRepository(pool),
		Stock:         stockSvc,
		Locker:        locker,
		Idempotency:   idem,
		Staff:         tokens,
		Audit:         audit,
		Metrics:       metrics,
		Logger:        logger,
		Invalidate:    statsCache.Invalidate,
		VerifyLockTTL: cfg.VerifyLockTTL,
	})

	router := app.NewRouter(app.RouterParams{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Identity:   identityMw,
		Orders:     orders.NewHandler(orderSvc, statsCache),
		StockItems: stockitems.NewHandler(stockSvc),
		JobsHealth: jobs.HealthHandler(cfg.RedisAddr),
		JobsWarmup: jobs.WarmupHandler(jobsClient.EnqueueStatsWarmup),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	if err := app.Run(server, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
