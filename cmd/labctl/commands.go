package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"lab-production-engine/internal/app"
	"lab-production-engine/internal/config"
	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/logging"
	"lab-production-engine/internal/migrate"
	"lab-production-engine/internal/realtime"
	"lab-production-engine/internal/repository/postgresql"
	"lab-production-engine/internal/service"
)

var (
	rootCmd = &cobra.Command{
		Use:          "labctl",
		Short:        "Run the lab production engine from the command line",
		SilenceUsage: true,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrate,
	}
	optimizeCmd = &cobra.Command{
		Use:   "optimize",
		Short: "Score pending jobs and print the optimized schedule",
		RunE:  runOptimize,
	}
	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Run the reactive monitor checks and print the report",
		RunE:  runMonitor,
	}
	forecastCmd = &cobra.Command{
		Use:   "forecast",
		Short: "Forecast material depletion over a horizon",
		RunE:  runForecast,
	}
	machinesCmd = &cobra.Command{
		Use:   "machines",
		Short: "Inspect or seed the Redis machine registry",
	}
	machinesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List machine states",
		Args:  cobra.NoArgs,
		RunE:  runMachinesList,
	}
	machinesSetCmd = &cobra.Command{
		Use:   "set <machine-id> <AVAILABLE|BUSY|MAINTENANCE>",
		Short: "Set the state of one machine",
		Args:  cobra.ExactArgs(2),
		RunE:  runMachinesSet,
	}
	submitCmd = &cobra.Command{
		Use:   "submit <optimize|monitor|forecast>",
		Short: "Queue a run for the worker",
		Args:  cobra.ExactArgs(1),
		RunE:  runSubmit,
	}

	horizonDays    int
	submitPriority int
	submitInput    string
	noPublish      bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&noPublish, "no-publish", false, "Do not publish results to Redis")

	forecastCmd.Flags().IntVar(&horizonDays, "horizon", service.DefaultHorizonDays, "Forecast horizon in days (1..365)")

	submitCmd.Flags().IntVar(&submitPriority, "priority", service.LanePriorityNormal, "Queue lane: 0=low, 1=normal, 2=high")
	submitCmd.Flags().StringVar(&submitInput, "input", "", "Run input as JSON")

	machinesCmd.AddCommand(machinesListCmd, machinesSetCmd)
	rootCmd.AddCommand(migrateCmd, optimizeCmd, monitorCmd, forecastCmd, machinesCmd, submitCmd)
}

type env struct {
	cfg    config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	rdb    *redis.Client
}

// connect opens the backends a command needs. Logs go to stderr so that
// stdout carries only the JSON result.
func connect(ctx context.Context, needPG, needRedis bool) (*env, error) {
	cfg, cfgErr := config.Load()
	e := &env{cfg: cfg, logger: logging.NewWithWriter(os.Stderr, cfg.Logging.Level)}
	if cfgErr != nil {
		e.logger.Warn("config file ignored, using defaults", "err", cfgErr)
	}

	if needPG {
		pool, err := postgresql.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.pool = pool
	}
	if needRedis {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			e.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		e.rdb = rdb
	}
	return e, nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
}

func (e *env) dispatcher() (*service.Dispatcher, error) {
	return app.NewDispatcher(app.Deps{Config: e.cfg, Pool: e.pool, Redis: e.rdb, Logger: e.logger})
}

// needsRedis reports whether an engine command has to talk to Redis.
func needsRedis(cfg config.Config) bool {
	return !noPublish || cfg.Engine.MachineSource == "redis"
}

func withEngine(cmd *cobra.Command, fn func(ctx context.Context, d *service.Dispatcher) (any, error)) error {
	ctx := cmd.Context()
	cfg, _ := config.Load() // connect reports a bad config file
	e, err := connect(ctx, true, needsRedis(cfg))
	if err != nil {
		return err
	}
	defer e.close()

	d, err := e.dispatcher()
	if err != nil {
		return err
	}
	out, err := fn(ctx, d)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), true, false)
	if err != nil {
		return err
	}
	defer e.close()
	return migrate.Run(cmd.Context(), e.pool, e.logger)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, d *service.Dispatcher) (any, error) {
		return d.Optimize(ctx)
	})
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, d *service.Dispatcher) (any, error) {
		return d.Analyze(ctx), nil
	})
}

func runForecast(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, d *service.Dispatcher) (any, error) {
		return d.Forecast(ctx, service.ForecastRequest{HorizonDays: horizonDays})
	})
}

func runMachinesList(cmd *cobra.Command, _ []string) error {
	e, err := connect(cmd.Context(), false, true)
	if err != nil {
		return err
	}
	defer e.close()

	statuses, err := realtime.NewMachineRegistry(e.rdb, e.cfg.Redis.MachineStatusKey).MachineStatuses(cmd.Context())
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, statuses[id])
	}
	return nil
}

func runMachinesSet(cmd *cobra.Command, args []string) error {
	status, err := parseMachineStatus(args[1])
	if err != nil {
		return err
	}

	e, err := connect(cmd.Context(), false, true)
	if err != nil {
		return err
	}
	defer e.close()

	return realtime.NewMachineRegistry(e.rdb, e.cfg.Redis.MachineStatusKey).SetStatus(cmd.Context(), args[0], status)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true, true)
	if err != nil {
		return err
	}
	defer e.close()

	runs := service.NewRunService(postgresql.NewRunRepository(e.pool), app.NewRunQueue(e.cfg.Redis, e.rdb))
	id, err := runs.CreateRun(cmd.Context(), service.CreateRunRequest{
		Kind:     entity.RunKind(args[0]),
		Priority: submitPriority,
		Input:    json.RawMessage(submitInput),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func parseMachineStatus(s string) (entity.MachineStatus, error) {
	st := entity.MachineStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case entity.MachineAvailable, entity.MachineBusy, entity.MachineMaintenance:
		return st, nil
	default:
		return "", fmt.Errorf("unknown machine status %q", s)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
