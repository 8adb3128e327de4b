package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
)

const (
	bottleneckHigh     = 5
	bottleneckCritical = 8

	shortageRatio = 0.5
	lowStockRatio = 1.0

	overdueGrace        = 24 * time.Hour
	delayCritical       = 3
	efficiencyWindow    = 7 * 24 * time.Hour
	efficiencyMinSample = 5
	efficiencyCritical  = 40.0
	efficiencyHigh      = 60.0
)

type MonitorDeps struct {
	Jobs      JobStore
	Materials MaterialStore
	Now       func() time.Time
	Logger    *slog.Logger
}

// ReactiveMonitor runs independent rule checks over the job and material
// snapshot. A failing check is logged and skipped; the others still run.
type ReactiveMonitor struct {
	jobs      JobStore
	materials MaterialStore
	now       func() time.Time
	logger    *slog.Logger
}

func NewReactiveMonitor(deps MonitorDeps) *ReactiveMonitor {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &ReactiveMonitor{
		jobs:      deps.Jobs,
		materials: deps.Materials,
		now:       deps.Now,
		logger:    deps.Logger,
	}
}

type monitorSnapshot struct {
	now          time.Time
	jobs         []entity.ProductionJob
	jobsErr      error
	materials    []entity.Material
	materialsErr error
}

func (s *monitorSnapshot) needJobs() ([]entity.ProductionJob, error) {
	if s.jobsErr != nil {
		return nil, fmt.Errorf("%w: jobs: %w", ErrSnapshot, s.jobsErr)
	}
	return s.jobs, nil
}

func (s *monitorSnapshot) needMaterials() ([]entity.Material, error) {
	if s.materialsErr != nil {
		return nil, fmt.Errorf("%w: materials: %w", ErrSnapshot, s.materialsErr)
	}
	return s.materials, nil
}

type monitorCheck struct {
	name string
	run  func(*monitorSnapshot) ([]entity.Alert, error)
}

func (m *ReactiveMonitor) checks() []monitorCheck {
	return []monitorCheck{
		{"bottleneck", m.checkBottleneck},
		{"stock_levels", m.checkStockLevels},
		{"delays", m.checkDelays},
		{"pipeline_demand", m.checkPipelineDemand},
		{"efficiency", m.checkEfficiency},
	}
}

// Analyze never fails as a whole: snapshot and check failures surface as
// FailedChecks on the report.
func (m *ReactiveMonitor) Analyze(ctx context.Context) *entity.MonitorReport {
	snap := &monitorSnapshot{now: m.now()}
	snap.jobs, snap.jobsErr = m.jobs.ListAllJobs(ctx)
	snap.materials, snap.materialsErr = m.materials.ListMaterials(ctx)

	report := &entity.MonitorReport{Alerts: []entity.Alert{}}
	for _, c := range m.checks() {
		alerts, err := runCheck(c, snap)
		if err != nil {
			m.logger.Warn("monitor check failed", "check", c.name, "err", err)
			report.FailedChecks = append(report.FailedChecks, c.name)
			continue
		}
		report.Alerts = append(report.Alerts, alerts...)
	}

	slices.SortStableFunc(report.Alerts, func(a, b entity.Alert) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})

	report.Metrics = systemMetrics(snap, report.Alerts)
	report.Recommendations = monitorRecommendations(report.Metrics)

	m.logger.Info("monitor analysis complete",
		"alerts", len(report.Alerts),
		"critical", report.Metrics.CriticalAlerts,
		"failed_checks", len(report.FailedChecks),
	)
	return report
}

func runCheck(c monitorCheck, snap *monitorSnapshot) (alerts []entity.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alerts = nil
			err = fmt.Errorf("panic in %s check: %v", c.name, r)
		}
	}()
	return c.run(snap)
}

func newAlert(now time.Time, typ entity.AlertType, sev entity.Severity, title, msg string, data map[string]any, actions ...string) entity.Alert {
	return entity.Alert{
		ID:                 uuid.New(),
		Type:               typ,
		Severity:           sev,
		Title:              title,
		Message:            msg,
		Data:               data,
		Timestamp:          now,
		Actionable:         len(actions) > 0,
		RecommendedActions: actions,
	}
}

func countStatus(jobs []entity.ProductionJob, st entity.JobStatus) int {
	n := 0
	for _, j := range jobs {
		if j.Status == st {
			n++
		}
	}
	return n
}

func (m *ReactiveMonitor) checkBottleneck(s *monitorSnapshot) ([]entity.Alert, error) {
	jobs, err := s.needJobs()
	if err != nil {
		return nil, err
	}
	pending := countStatus(jobs, entity.JobPending)
	inProgress := countStatus(jobs, entity.JobInProgress)

	var (
		sev       entity.Severity
		threshold int
	)
	switch {
	case pending > bottleneckCritical:
		sev, threshold = entity.SeverityCritical, bottleneckCritical
	case pending > bottleneckHigh:
		sev, threshold = entity.SeverityHigh, bottleneckHigh
	default:
		return nil, nil
	}

	return []entity.Alert{newAlert(s.now, entity.AlertMachineBottleneck, sev,
		"Production bottleneck detected",
		fmt.Sprintf("%d jobs are waiting in the queue (threshold %d)", pending, threshold),
		map[string]any{
			"pendingJobs":    pending,
			"inProgressJobs": inProgress,
			"threshold":      threshold,
		},
		"Run schedule optimization",
		"Bring idle machines online",
		"Defer non-urgent jobs",
	)}, nil
}

func (m *ReactiveMonitor) checkStockLevels(s *monitorSnapshot) ([]entity.Alert, error) {
	materials, err := s.needMaterials()
	if err != nil {
		return nil, err
	}
	var out []entity.Alert
	for _, mat := range materials {
		if mat.MinimumThreshold <= 0 {
			continue
		}
		ratio := float64(mat.CurrentStock) / float64(mat.MinimumThreshold)
		data := map[string]any{
			"material":         mat.Name,
			"currentStock":     mat.CurrentStock,
			"minimumThreshold": mat.MinimumThreshold,
			"ratio":            round2(ratio),
			"supplierId":       mat.SupplierID,
		}
		switch {
		case ratio <= shortageRatio:
			out = append(out, newAlert(s.now, entity.AlertCriticalShortage, entity.SeverityCritical,
				"Critical material shortage: "+mat.Name,
				fmt.Sprintf("%s is at %d units, at or below half of its minimum of %d", mat.Name, mat.CurrentStock, mat.MinimumThreshold),
				data,
				"Place an emergency order",
				"Hold jobs that require "+mat.Name,
			))
		case ratio <= lowStockRatio:
			out = append(out, newAlert(s.now, entity.AlertLowStock, entity.SeverityHigh,
				"Low stock: "+mat.Name,
				fmt.Sprintf("%s is at %d units, at or below its minimum of %d", mat.Name, mat.CurrentStock, mat.MinimumThreshold),
				data,
				"Reorder "+mat.Name,
			))
		}
	}
	return out, nil
}

func (m *ReactiveMonitor) checkDelays(s *monitorSnapshot) ([]entity.Alert, error) {
	jobs, err := s.needJobs()
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, j := range jobs {
		if j.Status == entity.JobCompleted || j.PatientETA == nil {
			continue
		}
		if s.now.Sub(*j.PatientETA) > overdueGrace {
			codes = append(codes, j.JobCode)
		}
	}
	if len(codes) == 0 {
		return nil, nil
	}

	sev := entity.SeverityHigh
	if len(codes) > delayCritical {
		sev = entity.SeverityCritical
	}
	return []entity.Alert{newAlert(s.now, entity.AlertProductionDelay, sev,
		"Production delays detected",
		fmt.Sprintf("%d job(s) are more than a day past their patient ETA", len(codes)),
		map[string]any{
			"overdueJobs": len(codes),
			"jobCodes":    codes,
		},
		"Contact affected patients",
		"Escalate overdue jobs with urgency override",
	)}, nil
}

// checkPipelineDemand looks forward: the summed requirement of all pending
// jobs against current stock, regardless of the static threshold.
func (m *ReactiveMonitor) checkPipelineDemand(s *monitorSnapshot) ([]entity.Alert, error) {
	jobs, err := s.needJobs()
	if err != nil {
		return nil, err
	}
	materials, err := s.needMaterials()
	if err != nil {
		return nil, err
	}

	demand := make(map[string]int)
	users := make(map[string]int)
	for _, j := range jobs {
		if j.Status != entity.JobPending {
			continue
		}
		for name, qty := range j.MaterialRequirements {
			demand[name] += qty
			users[name]++
		}
	}

	var out []entity.Alert
	for _, mat := range materials {
		need := demand[mat.Name]
		if need <= mat.CurrentStock {
			continue
		}
		out = append(out, newAlert(s.now, entity.AlertCriticalShortage, entity.SeverityCritical,
			"Pipeline shortage: "+mat.Name,
			fmt.Sprintf("Pending jobs need %d units of %s but only %d are in stock", need, mat.Name, mat.CurrentStock),
			map[string]any{
				"material":      mat.Name,
				"requiredTotal": need,
				"currentStock":  mat.CurrentStock,
				"deficit":       need - mat.CurrentStock,
				"pendingJobs":   users[mat.Name],
				"source":        "pipeline_demand",
			},
			"Order at least the deficit of "+mat.Name,
			"Re-run schedule optimization after restocking",
		))
	}
	return out, nil
}

func (m *ReactiveMonitor) checkEfficiency(s *monitorSnapshot) ([]entity.Alert, error) {
	jobs, err := s.needJobs()
	if err != nil {
		return nil, err
	}
	since := s.now.Add(-efficiencyWindow)
	total, completed := 0, 0
	for _, j := range jobs {
		if j.CreatedAt.Before(since) {
			continue
		}
		total++
		if j.Status == entity.JobCompleted {
			completed++
		}
	}
	if total < efficiencyMinSample {
		return nil, nil
	}

	rate := float64(completed) / float64(total) * 100
	var sev entity.Severity
	switch {
	case rate < efficiencyCritical:
		sev = entity.SeverityCritical
	case rate < efficiencyHigh:
		sev = entity.SeverityHigh
	default:
		return nil, nil
	}
	return []entity.Alert{newAlert(s.now, entity.AlertEfficiencyDrop, sev,
		"Completion rate dropped",
		fmt.Sprintf("Only %.1f%% of jobs created in the last 7 days are completed", rate),
		map[string]any{
			"completionRate": round2(rate),
			"completedJobs":  completed,
			"totalJobs":      total,
			"windowDays":     7,
		},
		"Review failed and stalled jobs",
		"Check machine maintenance schedule",
	)}, nil
}

func systemMetrics(s *monitorSnapshot, alerts []entity.Alert) entity.SystemMetrics {
	var m entity.SystemMetrics
	if s.jobsErr == nil {
		m.PendingJobs = countStatus(s.jobs, entity.JobPending)
	}
	if s.materialsErr == nil {
		for _, mat := range s.materials {
			if mat.MinimumThreshold > 0 && mat.CurrentStock <= mat.MinimumThreshold {
				m.LowStockMaterials++
			}
		}
	}
	for _, a := range alerts {
		if a.Severity == entity.SeverityCritical {
			m.CriticalAlerts++
		}
	}
	m.MachineUtilization = clamp(85-5*float64(m.PendingJobs), 0, 100)
	m.Efficiency = clamp(90-10*float64(m.CriticalAlerts), 0, 100)
	return m
}

func monitorRecommendations(m entity.SystemMetrics) []string {
	var out []string
	if m.CriticalAlerts > 0 {
		out = append(out, fmt.Sprintf("Address %d critical alert(s) immediately", m.CriticalAlerts))
	}
	if m.PendingJobs > bottleneckHigh {
		out = append(out, "Run schedule optimization to clear the pending queue")
	}
	if m.LowStockMaterials > 2 {
		out = append(out, "Review the reorder policy: several materials are below minimum")
	}
	if m.MachineUtilization < 70 {
		out = append(out, "Rebalance machine load across available equipment")
	}
	if m.Efficiency < 80 {
		out = append(out, "Investigate the root cause of reduced efficiency")
	}
	if len(out) == 0 {
		out = []string{"All systems operating nominally"}
	}
	return out
}
