// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"lab-production-engine/internal/app"
	"lab-production-engine/internal/config"
	"lab-production-engine/internal/logging"
	"lab-production-engine/internal/observability"
	"lab-production-engine/internal/repository/postgresql"
	"lab-production-engine/internal/service"
	"lab-production-engine/internal/worker"
)

const workerMetricsAddrEnv = "WORKER_METRICS_ADDR"

func main() {
	cfg, cfgErr := config.Load()
	logger := logging.New(cfg.Logging.Level).With("component", "worker")
	if cfgErr != nil {
		logger.Warn("config file ignored, using defaults", "err", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker config",
		"workers", cfg.Worker.Workers,
		"redis_addr", cfg.Redis.Addr,
		"queue_key", cfg.Redis.QueueKey,
		"processing_key", cfg.Redis.ProcessingKey,
		"visibility_timeout_s", cfg.Worker.VisibilityTimeoutSeconds,
		"postgres_dsn", redactDSN(cfg.Postgres.DSN),
	)

	// Postgres
	pool, err := postgresql.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Error("pg", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	if addr := os.Getenv(workerMetricsAddrEnv); addr != "" {
		go serveMetrics(addr, reg, logger)
	}

	// DI
	dispatcher, err := app.NewDispatcher(app.Deps{
		Config:  cfg,
		Pool:    pool,
		Redis:   rdb,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("build engine", "err", err)
		os.Exit(1)
	}

	repo := postgresql.NewRunRepository(pool)
	queue := app.NewRunQueue(cfg.Redis, rdb)
	runs := service.NewRunService(repo, queue)

	visibility := time.Duration(cfg.Worker.VisibilityTimeoutSeconds) * time.Second
	go maintainQueue(ctx, queue, metrics, time.Duration(cfg.Worker.RequeueEverySeconds)*time.Second, visibility, logger)

	processor := worker.NewProcessor(repo, dispatcher, runs, logger, worker.WithLease(visibility))
	worker.NewPool(queue, processor, cfg.Worker.Workers, logger).Run(ctx)

	logger.Info("worker stopped")
}

// maintainQueue moves runs claimed longer than visibility ago (their worker
// crashed or could not record a result) back to their lane and refreshes the
// queue depth gauge.
func maintainQueue(ctx context.Context, queue service.RunQueue, metrics *observability.Metrics, every, visibility time.Duration, logger *slog.Logger) {
	if every <= 0 {
		every = 30 * time.Second
	}
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queue.RequeueStale(ctx, visibility, 100)
			if err != nil {
				logger.Warn("requeue stale runs", "err", err)
			} else if n > 0 {
				logger.Info("requeued runs from processing", "count", n)
			}

			depth, err := queue.Depth(ctx)
			if err != nil {
				logger.Warn("queue depth", "err", err)
				continue
			}
			for lane, d := range depth {
				metrics.QueueDepth.WithLabelValues(lane).Set(float64(d))
			}
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("worker metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Warn("worker metrics server", "err", err)
	}
}

// redactDSN masks the password: user:pass@ -> user:****@
func redactDSN(dsn string) string {
	re := regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)
	return re.ReplaceAllString(dsn, `://$1:****@`)
}
