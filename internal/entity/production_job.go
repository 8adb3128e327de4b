package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// ProductionJob is a unit of lab work. Status is owned by the external
// pipeline; PriorityScore is written only by the schedule optimizer.
type ProductionJob struct {
	ID                   uuid.UUID      `json:"id"`
	JobCode              string         `json:"job_code"`
	JobType              string         `json:"job_type"`
	Status               JobStatus      `json:"status"`
	Priority             *int           `json:"priority,omitempty"`
	PriorityScore        float64        `json:"priority_score"`
	PriorityVersion      int            `json:"priority_version"`
	MachineID            *string        `json:"machine_id,omitempty"`
	EstimatedDuration    *string        `json:"estimated_duration,omitempty"`
	PatientETA           *time.Time     `json:"patient_eta,omitempty"`
	UrgencyOverride      bool           `json:"urgency_override"`
	MaterialRequirements map[string]int `json:"material_requirements"`
	CreatedAt            time.Time      `json:"created_at"`
}

// BasePriority returns the externally assigned priority, 1 when unset.
func (j ProductionJob) BasePriority() int {
	if j.Priority == nil {
		return 1
	}
	return *j.Priority
}
