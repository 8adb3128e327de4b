package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
)

// Run repository port (implementation: postgresql.RunRepository).
type RunRepository interface {
	Create(ctx context.Context, kind entity.RunKind, priority int, input json.RawMessage) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.EngineRun, error)
}

// Enqueue-only view of the run queue.
type RunEnqueuer interface {
	Enqueue(ctx context.Context, runID string, priority int) error
}

// RunService queues engine operations for the worker.
type RunService struct {
	repo  RunRepository
	queue RunEnqueuer
}

func NewRunService(repo RunRepository, queue RunEnqueuer) *RunService {
	return &RunService{repo: repo, queue: queue}
}

type CreateRunRequest struct {
	Kind     entity.RunKind `validate:"required,oneof=optimize monitor forecast"`
	Priority int
	Input    json.RawMessage
}

func (s *RunService) CreateRun(ctx context.Context, req CreateRunRequest) (uuid.UUID, error) {
	if err := validateStruct(req); err != nil {
		return uuid.Nil, err
	}
	if len(req.Input) == 0 {
		req.Input = json.RawMessage(`{}`)
	}
	if !json.Valid(req.Input) {
		return uuid.Nil, fmt.Errorf("%w: input is not valid json", ErrInvalidInput)
	}
	if err := validateRunInput(req.Kind, req.Input); err != nil {
		return uuid.Nil, err
	}

	priority := req.Priority
	if priority < LanePriorityLow || priority > LanePriorityHigh {
		priority = LanePriorityNormal
	}

	id, err := s.repo.Create(ctx, req.Kind, priority, req.Input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create run: %w", err)
	}

	if err := s.queue.Enqueue(ctx, id.String(), priority); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue run %s: %w", id, err)
	}

	return id, nil
}

// validateRunInput rejects input the worker would refuse anyway, so a bad
// request fails at submission instead of turning into an error run.
func validateRunInput(kind entity.RunKind, input json.RawMessage) error {
	if kind != entity.RunForecast {
		return nil
	}
	var req ForecastRequest
	if err := decodeInput(input, &req); err != nil {
		return err
	}
	if req.HorizonDays == 0 {
		// unset: the forecaster applies its default
		return nil
	}
	return validateStruct(req)
}

func (s *RunService) GetRun(ctx context.Context, id uuid.UUID) (*entity.EngineRun, error) {
	return s.repo.GetByID(ctx, id)
}
