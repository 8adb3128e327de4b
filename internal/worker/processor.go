package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/repository/postgresql"
	"lab-production-engine/internal/service"
)

// ErrRunNotSettled means this attempt left the run row without a final
// status. The pool must not ack such a run; the queue hands it out again once
// its visibility timeout passes.
var ErrRunNotSettled = errors.New("run not settled")

type RunRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.EngineRun, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.RunStatus) error
	SetResultDone(ctx context.Context, id uuid.UUID, output json.RawMessage) error
	SetResultError(ctx context.Context, id uuid.UUID, errText string) error
}

type Executor interface {
	Dispatch(ctx context.Context, kind entity.RunKind, input json.RawMessage) (any, error)
}

// RunCreator queues follow-up runs.
type RunCreator interface {
	CreateRun(ctx context.Context, req service.CreateRunRequest) (uuid.UUID, error)
}

type Processor struct {
	repo     RunRepo
	exec     Executor
	followUp RunCreator
	logger   *slog.Logger
	lease    time.Duration
	now      func() time.Time
}

type ProcessorOption func(*Processor)

// WithLease sets how long a run marked processing belongs to the worker that
// marked it. A redelivered run still inside its lease is left alone.
// Zero disables the check.
func WithLease(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.lease = d }
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// NewProcessor wires a processor. followUp may be nil, which disables the
// monitor -> forecast trigger.
func NewProcessor(repo RunRepo, exec Executor, followUp RunCreator, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{repo: repo, exec: exec, followUp: followUp, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Process(ctx context.Context, runID string) error {
	start := time.Now()

	id, err := uuid.Parse(runID)
	if err != nil {
		p.logger.Error("parse run id", "run_id", runID, "err", err)
		return err
	}

	run, err := p.repo.GetByID(ctx, id)
	if errors.Is(err, postgresql.ErrNotFound) {
		p.logger.Error("run not found", "run_id", id)
		return err
	}
	if err != nil {
		p.logger.Error("get run", "run_id", id, "err", err)
		return fmt.Errorf("get run %s: %w: %w", id, ErrRunNotSettled, err)
	}
	if run.Status == entity.RunDone || run.Status == entity.RunError {
		// redelivered after the reaper moved it back
		p.logger.Info("run already finished, skipping", "run_id", id, "status", run.Status)
		return nil
	}
	if run.Status == entity.RunProcessing && p.lease > 0 && p.now().Sub(run.UpdatedAt) < p.lease {
		p.logger.Info("run in flight elsewhere, leaving it queued", "run_id", id, "updated_at", run.UpdatedAt)
		return fmt.Errorf("run %s in flight: %w", id, ErrRunNotSettled)
	}

	if err := p.repo.UpdateStatus(ctx, id, entity.RunProcessing); err != nil {
		p.logger.Error("update status", "run_id", id, "status", entity.RunProcessing, "err", err)
		return fmt.Errorf("mark run %s processing: %w: %w", id, ErrRunNotSettled, err)
	}
	p.logger.Info("run processing", "run_id", id, "kind", run.Kind)

	result, execErr := p.exec.Dispatch(ctx, run.Kind, run.Input)
	if execErr != nil {
		msg := execErr.Error()
		p.logger.Warn("run failed", "run_id", id, "kind", run.Kind,
			"duration_ms", time.Since(start).Milliseconds(), "err", msg)
		if err := p.repo.SetResultError(ctx, id, msg); err != nil {
			p.logger.Error("set error", "run_id", id, "kind", run.Kind, "err", err)
			return fmt.Errorf("record run %s failure: %w: %w", id, ErrRunNotSettled, err)
		}
		return execErr
	}

	out, err := json.Marshal(result)
	if err != nil {
		if setErr := p.repo.SetResultError(ctx, id, err.Error()); setErr != nil {
			return fmt.Errorf("record run %s failure: %w: %w", id, ErrRunNotSettled, setErr)
		}
		return fmt.Errorf("marshal run %s output: %w", id, err)
	}
	if err := p.repo.SetResultDone(ctx, id, out); err != nil {
		p.logger.Error("set done", "run_id", id, "kind", run.Kind, "err", err)
		return fmt.Errorf("record run %s result: %w: %w", id, ErrRunNotSettled, err)
	}

	p.logger.Info("run done", "run_id", id, "kind", run.Kind, "duration_ms", time.Since(start).Milliseconds())

	if report, ok := result.(*entity.MonitorReport); ok {
		p.triggerForecast(ctx, id, report)
	}
	return nil
}

// triggerForecast queues a high-priority forecast when a monitor run found
// stock problems.
func (p *Processor) triggerForecast(ctx context.Context, monitorRunID uuid.UUID, report *entity.MonitorReport) {
	if p.followUp == nil || !hasStockAlert(report) {
		return
	}
	fid, err := p.followUp.CreateRun(ctx, service.CreateRunRequest{
		Kind:     entity.RunForecast,
		Priority: service.LanePriorityHigh,
	})
	if err != nil {
		p.logger.Warn("queue follow-up forecast", "monitor_run_id", monitorRunID, "err", err)
		return
	}
	p.logger.Info("queued follow-up forecast", "monitor_run_id", monitorRunID, "forecast_run_id", fid)
}

func hasStockAlert(r *entity.MonitorReport) bool {
	for _, a := range r.Alerts {
		if a.Type == entity.AlertCriticalShortage || a.Type == entity.AlertLowStock {
			return true
		}
	}
	return false
}
