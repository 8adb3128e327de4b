// Package app wires the engine modules onto their Postgres and Redis
// backends. The server, worker and labctl binaries share it.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lab-production-engine/internal/config"
	"lab-production-engine/internal/observability"
	"lab-production-engine/internal/realtime"
	"lab-production-engine/internal/repository/postgresql"
	"lab-production-engine/internal/scoring"
	"lab-production-engine/internal/service"
)

type Deps struct {
	Config  config.Config
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewDispatcher builds the three decision modules and the dispatcher over
// them. Redis is optional: without it there is no realtime fan-out and the
// machine source falls back to the static table.
func NewDispatcher(d Deps) (*service.Dispatcher, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	engineCfg := d.Config.Engine

	jobs := postgresql.NewProductionJobRepository(d.Pool)
	materials := postgresql.NewMaterialRepository(d.Pool)

	machines, err := machineSource(d)
	if err != nil {
		return nil, err
	}

	optimizer := service.NewScheduleOptimizer(service.OptimizerDeps{
		Jobs:             jobs,
		Priorities:       jobs,
		Materials:        materials,
		Machines:         machines,
		Scorer:           scoring.NewScorer(time.Now),
		Logger:           d.Logger.With("module", "optimizer"),
		WriteConcurrency: engineCfg.PriorityWriteLimit,
	})
	monitor := service.NewReactiveMonitor(service.MonitorDeps{
		Jobs:      jobs,
		Materials: materials,
		Logger:    d.Logger.With("module", "monitor"),
	})
	forecaster := service.NewInventoryForecaster(service.ForecasterDeps{
		Jobs:               jobs,
		Materials:          materials,
		History:            materials,
		LeadTimes:          engineCfg.SupplierLeadTimes,
		LookbackDays:       engineCfg.LookbackDays,
		DefaultHorizonDays: engineCfg.DefaultHorizonDays,
		Logger:             d.Logger.With("module", "forecaster"),
	})

	deps := service.DispatcherDeps{
		Optimizer:  optimizer,
		Monitor:    monitor,
		Forecaster: forecaster,
		Metrics:    d.Metrics,
		Logger:     d.Logger,
	}
	if d.Redis != nil {
		deps.Publisher = realtime.NewPublisher(d.Redis)
	}
	if engineCfg.ArchiveAlerts {
		deps.Archive = postgresql.NewAlertRepository(d.Pool)
	}
	return service.NewDispatcher(deps), nil
}

func machineSource(d Deps) (service.MachineStatusSource, error) {
	switch d.Config.Engine.MachineSource {
	case "", "static":
		return service.NewStaticMachineStatus(d.Config.Engine.MachineStatuses), nil
	case "redis":
		if d.Redis == nil {
			return nil, fmt.Errorf("machine source redis: no redis client")
		}
		return realtime.NewMachineRegistry(d.Redis, d.Config.Redis.MachineStatusKey), nil
	default:
		return nil, fmt.Errorf("unknown machine source %q", d.Config.Engine.MachineSource)
	}
}

// NewRunQueue builds the three-lane Redis run queue from the configured keys.
func NewRunQueue(cfg config.RedisConfig, rdb *redis.Client) service.RunQueue {
	low, normal, high := service.LanesFromBase(cfg.QueueKey, cfg.ProcessingKey)
	return service.NewRedisRunQueue(rdb, cfg.ProcessingMapKey, low, normal, high)
}
