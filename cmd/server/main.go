// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	_ "lab-production-engine/docs"
	"lab-production-engine/internal/app"
	"lab-production-engine/internal/config"
	"lab-production-engine/internal/logging"
	"lab-production-engine/internal/migrate"
	"lab-production-engine/internal/observability"
	"lab-production-engine/internal/repository/postgresql"
	"lab-production-engine/internal/service"
	httptransport "lab-production-engine/internal/transport/http"
)

// @title Lab Production Engine API
// @version 1.0
// @description Schedule optimization, reactive monitoring and inventory forecasting for a dental lab.
// @BasePath /
func main() {
	cfg, cfgErr := config.Load()
	logger := logging.New(cfg.Logging.Level)
	if cfgErr != nil {
		logger.Warn("config file ignored, using defaults", "err", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgresql.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrate.Run(ctx, pool, logger); err != nil {
		logger.Error("run migrations", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping", "addr", cfg.Redis.Addr, "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

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

	runs := service.NewRunService(postgresql.NewRunRepository(pool), app.NewRunQueue(cfg.Redis, rdb))
	handler := httptransport.NewHandler(dispatcher, runs)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httptransport.Routes(handler, httptransport.SlogRequestLog(logger), reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	logger.Info("server stopped")
}
