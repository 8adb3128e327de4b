package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/scoring"
)

const (
	highPriorityScore        = 100.0
	materialConstrainedBelow = 50.0
	busyMachinesThreshold    = 2
	defaultWriteConcurrency  = 8
)

type OptimizerDeps struct {
	Jobs             JobStore
	Priorities       PriorityWriter
	Materials        MaterialStore
	Machines         MachineStatusSource
	Scorer           *scoring.Scorer
	Logger           *slog.Logger
	WriteConcurrency int
}

// ScheduleOptimizer ranks pending jobs and writes the resulting priority
// scores back to the store.
//
// Two overlapping runs may each write scores computed from their own
// snapshot; the last write per job wins. Priority is an ordering hint, so
// no transaction spans the read and the writes.
type ScheduleOptimizer struct {
	jobs             JobStore
	priorities       PriorityWriter
	materials        MaterialStore
	machines         MachineStatusSource
	scorer           *scoring.Scorer
	logger           *slog.Logger
	writeConcurrency int
}

func NewScheduleOptimizer(deps OptimizerDeps) *ScheduleOptimizer {
	if deps.Machines == nil {
		deps.Machines = NewStaticMachineStatus(nil)
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewScorer(time.Now)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteConcurrency <= 0 {
		deps.WriteConcurrency = defaultWriteConcurrency
	}
	return &ScheduleOptimizer{
		jobs:             deps.Jobs,
		priorities:       deps.Priorities,
		materials:        deps.Materials,
		machines:         deps.Machines,
		scorer:           deps.Scorer,
		logger:           deps.Logger,
		writeConcurrency: deps.WriteConcurrency,
	}
}

type scoredJob struct {
	job       entity.ProductionJob
	breakdown scoring.Breakdown
}

// Optimize scores every pending job, orders them by descending score and
// persists the scores. A failed snapshot read aborts the run; failed
// priority writes are reported in the analytics only.
func (o *ScheduleOptimizer) Optimize(ctx context.Context) (*entity.ScheduleResult, error) {
	jobs, err := o.jobs.ListPendingJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending jobs: %w", ErrSnapshot, err)
	}
	materials, err := o.materials.ListMaterials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list materials: %w", ErrSnapshot, err)
	}
	machines, err := o.machines.MachineStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: machine statuses: %w", ErrSnapshot, err)
	}

	// ties on score must keep creation order
	slices.SortStableFunc(jobs, func(a, b entity.ProductionJob) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	stock := entity.StockByName(materials)
	scored := make([]scoredJob, 0, len(jobs))
	for _, j := range jobs {
		scored = append(scored, scoredJob{job: j, breakdown: o.scorer.Breakdown(j, stock, machines)})
	}
	slices.SortStableFunc(scored, func(a, b scoredJob) int {
		return cmp.Compare(b.breakdown.Total, a.breakdown.Total)
	})

	failures := o.writePriorities(ctx, scored)

	result := &entity.ScheduleResult{Jobs: make([]entity.ProductionJob, 0, len(scored))}
	for _, s := range scored {
		j := s.job
		j.PriorityScore = s.breakdown.Total
		result.Jobs = append(result.Jobs, j)
	}
	result.Analytics = scheduleAnalytics(scored, machines)
	result.Analytics.FailedPriorityWrites = failures

	o.logger.Info("schedule optimized",
		"jobs", len(scored),
		"high_priority", result.Analytics.HighPriorityJobs,
		"failed_writes", len(failures),
	)
	return result, nil
}

// writePriorities issues one write per job concurrently and waits for all of
// them. Records are disjoint, so a failure never stops the other writes.
func (o *ScheduleOptimizer) writePriorities(ctx context.Context, scored []scoredJob) []entity.PriorityWriteFailure {
	var (
		mu       sync.Mutex
		failures []entity.PriorityWriteFailure
		order    = make(map[string]int, len(scored))
	)

	var g errgroup.Group
	g.SetLimit(o.writeConcurrency)
	for i, s := range scored {
		order[s.job.ID.String()] = i
		g.Go(func() error {
			if err := o.priorities.UpdateJobPriority(ctx, s.job.ID, s.breakdown.Total); err != nil {
				o.logger.Warn("priority write failed", "job_id", s.job.ID, "job_code", s.job.JobCode, "err", err)
				mu.Lock()
				failures = append(failures, entity.PriorityWriteFailure{JobID: s.job.ID, Error: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(failures, func(a, b entity.PriorityWriteFailure) int {
		return cmp.Compare(order[a.JobID.String()], order[b.JobID.String()])
	})
	return failures
}

func scheduleAnalytics(scored []scoredJob, machines map[string]entity.MachineStatus) entity.ScheduleAnalytics {
	a := entity.ScheduleAnalytics{TotalJobs: len(scored)}

	var sum float64
	urgent := 0
	for _, s := range scored {
		sum += s.breakdown.Total
		if s.breakdown.Total > highPriorityScore {
			a.HighPriorityJobs++
		}
		if s.breakdown.Material < materialConstrainedBelow {
			a.MaterialConstrainedJobs++
		}
		if s.breakdown.Total >= scoring.OverrideScore {
			urgent++
		}
	}
	if len(scored) > 0 {
		a.AverageScore = round2(sum / float64(len(scored)))
	}

	busy := 0
	for _, st := range machines {
		if st == entity.MachineBusy {
			busy++
		}
	}

	if a.MaterialConstrainedJobs > 0 {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf(
			"%d job(s) are material-constrained: restock before releasing them to production", a.MaterialConstrainedJobs))
	}
	if busy > busyMachinesThreshold {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf(
			"%d machines are busy: consider redistributing load or adding capacity", busy))
	}
	if urgent > 0 {
		a.Recommendations = append(a.Recommendations, fmt.Sprintf(
			"%d urgent job(s) moved to the front of the queue", urgent))
	}
	if len(a.Recommendations) == 0 {
		a.Recommendations = []string{"Schedule is balanced: no action required"}
	}
	return a
}
