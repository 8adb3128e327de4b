package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/observability"
)

// Realtime channels the dispatcher publishes to.
const (
	ChannelSchedule  = "lab:schedule"
	ChannelAlerts    = "lab:alerts"
	ChannelForecasts = "lab:forecasts"
)

type DispatcherDeps struct {
	Optimizer  *ScheduleOptimizer
	Monitor    *ReactiveMonitor
	Forecaster *InventoryForecaster
	Publisher  Publisher
	Archive    AlertArchive
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Dispatcher is the single entry point for engine operations. It runs the
// requested module, records metrics and hands results to the fan-out and
// archive collaborators. Collaborator failures are logged, never returned.
type Dispatcher struct {
	optimizer  *ScheduleOptimizer
	monitor    *ReactiveMonitor
	forecaster *InventoryForecaster
	publisher  Publisher
	archive    AlertArchive
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Dispatcher{
		optimizer:  deps.Optimizer,
		monitor:    deps.Monitor,
		forecaster: deps.Forecaster,
		publisher:  deps.Publisher,
		archive:    deps.Archive,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

func (d *Dispatcher) Optimize(ctx context.Context) (*entity.ScheduleResult, error) {
	start := time.Now()
	res, err := d.optimizer.Optimize(ctx)
	d.observe(entity.RunOptimize, start, err)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.PriorityWriteFailuresTotal.Add(float64(len(res.Analytics.FailedPriorityWrites)))
	}
	d.publish(ctx, ChannelSchedule, res)
	return res, nil
}

func (d *Dispatcher) Analyze(ctx context.Context) *entity.MonitorReport {
	start := time.Now()
	report := d.monitor.Analyze(ctx)
	d.observe(entity.RunMonitor, start, nil)

	if d.metrics != nil {
		for _, a := range report.Alerts {
			d.metrics.AlertsTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
		}
		for _, c := range report.FailedChecks {
			d.metrics.MonitorCheckFailuresTotal.WithLabelValues(c).Inc()
		}
	}

	d.archiveAlerts(ctx, report.Alerts)
	d.publish(ctx, ChannelAlerts, report)
	return report
}

func (d *Dispatcher) Forecast(ctx context.Context, req ForecastRequest) (*entity.ForecastReport, error) {
	start := time.Now()
	report, err := d.forecaster.Forecast(ctx, req)
	d.observe(entity.RunForecast, start, err)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.MaterialsAtRisk.Set(float64(report.Analytics.MaterialsAtRisk))
	}
	d.publish(ctx, ChannelForecasts, report)
	return report, nil
}

// Dispatch executes the operation named by kind with a JSON input.
func (d *Dispatcher) Dispatch(ctx context.Context, kind entity.RunKind, input json.RawMessage) (any, error) {
	switch kind {
	case entity.RunOptimize:
		return d.Optimize(ctx)
	case entity.RunMonitor:
		return d.Analyze(ctx), nil
	case entity.RunForecast:
		var req ForecastRequest
		if err := decodeInput(input, &req); err != nil {
			return nil, err
		}
		return d.Forecast(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, kind)
	}
}

func decodeInput(input json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (d *Dispatcher) observe(op entity.RunKind, start time.Time, err error) {
	if d.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.InvocationsTotal.WithLabelValues(string(op), status).Inc()
	d.metrics.InvocationDurationSeconds.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
}

func (d *Dispatcher) publish(ctx context.Context, channel string, payload any) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, channel, payload); err != nil {
		d.logger.Warn("realtime publish failed", "channel", channel, "err", err)
	}
}

func (d *Dispatcher) archiveAlerts(ctx context.Context, alerts []entity.Alert) {
	if d.archive == nil {
		return
	}
	var keep []entity.Alert
	for _, a := range alerts {
		if a.Severity.Rank() >= entity.SeverityHigh.Rank() {
			keep = append(keep, a)
		}
	}
	if len(keep) == 0 {
		return
	}
	if err := d.archive.ArchiveAlerts(ctx, keep); err != nil {
		d.logger.Warn("alert archive failed", "alerts", len(keep), "err", err)
	}
}
