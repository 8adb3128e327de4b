package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

// fakeLab is an in-memory job + material store. Safe for concurrent use.
type fakeLab struct {
	mu sync.Mutex

	jobs        []entity.ProductionJob
	materials   []entity.Material
	consumption []entity.ConsumptionRecord

	jobsErr      error
	materialsErr error
	historyErr   error

	failWrites map[uuid.UUID]error
	scores     map[uuid.UUID]float64
	versions   map[uuid.UUID]int
	writes     int
}

func (f *fakeLab) ListPendingJobs(ctx context.Context) ([]entity.ProductionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	var out []entity.ProductionJob
	for _, j := range f.jobs {
		if j.Status == entity.JobPending {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeLab) ListAllJobs(ctx context.Context) ([]entity.ProductionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return append([]entity.ProductionJob(nil), f.jobs...), nil
}

func (f *fakeLab) UpdateJobPriority(ctx context.Context, jobID uuid.UUID, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if err := f.failWrites[jobID]; err != nil {
		return err
	}
	if f.scores == nil {
		f.scores = map[uuid.UUID]float64{}
		f.versions = map[uuid.UUID]int{}
	}
	f.scores[jobID] = score
	f.versions[jobID]++
	return nil
}

func (f *fakeLab) ListMaterials(ctx context.Context) ([]entity.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.materialsErr != nil {
		return nil, f.materialsErr
	}
	return append([]entity.Material(nil), f.materials...), nil
}

func (f *fakeLab) ListConsumption(ctx context.Context, since time.Time) ([]entity.ConsumptionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []entity.ConsumptionRecord
	for _, r := range f.consumption {
		if !r.ConsumedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeMachines struct {
	statuses map[string]entity.MachineStatus
	err      error
}

func (m fakeMachines) MachineStatuses(ctx context.Context) (map[string]entity.MachineStatus, error) {
	return m.statuses, m.err
}

type published struct {
	channel string
	payload any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{channel: channel, payload: payload})
	return p.err
}

type fakeArchive struct {
	alerts []entity.Alert
	err    error
}

func (a *fakeArchive) ArchiveAlerts(ctx context.Context, alerts []entity.Alert) error {
	a.alerts = append(a.alerts, alerts...)
	return a.err
}

type fakeRunRepo struct {
	createCalled int
	lastKind     entity.RunKind
	lastInput    json.RawMessage
	lastPriority int

	createID  uuid.UUID
	createErr error
}

func (r *fakeRunRepo) Create(ctx context.Context, kind entity.RunKind, priority int, input json.RawMessage) (uuid.UUID, error) {
	r.createCalled++
	r.lastKind = kind
	r.lastPriority = priority
	r.lastInput = input
	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	return r.createID, nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.EngineRun, error) {
	return &entity.EngineRun{ID: id, Kind: r.lastKind, Status: entity.RunPending}, nil
}

type fakeQueue struct {
	enqueuedIDs        []string
	enqueuedPriorities []int
	enqueueErr         error
}

func (q *fakeQueue) Enqueue(ctx context.Context, runID string, priority int) error {
	q.enqueuedIDs = append(q.enqueuedIDs, runID)
	q.enqueuedPriorities = append(q.enqueuedPriorities, priority)
	return q.enqueueErr
}
