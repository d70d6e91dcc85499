package jobs

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/galley-erp/galley-erp/internal/platform/httpx"
)

// WorkerConfig configures the asynq server and scheduler.
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// Worker runs the task server plus the cron scheduler that feeds it.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *slog.Logger
}

func NewWorker(cfg WorkerConfig, deps Deps) (*Worker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{QueueDefault: 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskStatsWarmup, deps.HandleStatsWarmup)
	mux.HandleFunc(TaskStockExpiryScan, deps.HandleStockExpiryScan)
	mux.HandleFunc(TaskIdempotencyCleanup, deps.HandleIdempotencyCleanup)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	crons := []struct {
		spec string
		task string
	}{
		{"@every 1m", TaskStatsWarmup},
		{"@every 10m", TaskStockExpiryScan},
		{"@every 24h", TaskIdempotencyCleanup},
	}
	for _, c := range crons {
		if _, err := scheduler.Register(c.spec, asynq.NewTask(c.task, nil), asynq.Queue(QueueDefault)); err != nil {
			return nil, fmt.Errorf("jobs: register %s: %w", c.task, err)
		}
	}

	return &Worker{server: server, scheduler: scheduler, mux: mux, logger: deps.Logger}, nil
}

// Run blocks serving tasks until the process is signalled.
func (w *Worker) Run() error {
	errCh := make(chan error, 1)
	go func() {
		if err := w.scheduler.Run(); err != nil {
			errCh <- fmt.Errorf("jobs: scheduler: %w", err)
		}
	}()
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			errCh <- fmt.Errorf("jobs: server: %w", err)
		}
	}()
	return <-errCh
}

// Client enqueues ad-hoc tasks from the API process.
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (c *Client) EnqueueStatsWarmup() error {
	_, err := c.client.Enqueue(asynq.NewTask(TaskStatsWarmup, nil), asynq.Queue(QueueDefault))
	return err
}

func (c *Client) Close() error {
	return c.client.Close()
}

// WarmupHandler enqueues an immediate stats warmup, so operators don't
// have to wait for the next scheduled run after bulk changes.
func WarmupHandler(enqueue func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := enqueue(); err != nil {
			httpx.Fail(w, http.StatusServiceUnavailable, "enqueue failed")
			return
		}
		httpx.OK(w, http.StatusAccepted, map[string]any{"message": "stats warmup enqueued"})
	}
}

// HealthHandler reports queue depth via the asynq inspector.
func HealthHandler(redisAddr string) http.HandlerFunc {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := inspector.GetQueueInfo(QueueDefault)
		if err != nil {
			httpx.Fail(w, http.StatusServiceUnavailable, "queue unavailable")
			return
		}
		httpx.OK(w, http.StatusOK, map[string]any{
			"queue":     info.Queue,
			"pending":   info.Pending,
			"active":    info.Active,
			"retry":     info.Retry,
			"archived":  info.Archived,
			"processed": info.Processed,
			"failed":    info.Failed,
		})
	}
}
