package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
)

// Read side of the production store (implementation: postgresql.ProductionJobRepository).
type JobStore interface {
	ListPendingJobs(ctx context.Context) ([]entity.ProductionJob, error)
	ListAllJobs(ctx context.Context) ([]entity.ProductionJob, error)
}

// Only the schedule optimizer writes priorities.
type PriorityWriter interface {
	UpdateJobPriority(ctx context.Context, jobID uuid.UUID, score float64) error
}

type MaterialStore interface {
	ListMaterials(ctx context.Context) ([]entity.Material, error)
}

// ConsumptionHistory returns stock decrements recorded since the given time.
type ConsumptionHistory interface {
	ListConsumption(ctx context.Context, since time.Time) ([]entity.ConsumptionRecord, error)
}

// MachineStatusSource is the machine registry read model.
type MachineStatusSource interface {
	MachineStatuses(ctx context.Context) (map[string]entity.MachineStatus, error)
}

// Publisher fans results out to connected dashboards.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// AlertArchive keeps a durable subset of monitor alerts.
type AlertArchive interface {
	ArchiveAlerts(ctx context.Context, alerts []entity.Alert) error
}
