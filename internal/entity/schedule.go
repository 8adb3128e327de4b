package entity

import "github.com/google/uuid"

type PriorityWriteFailure struct {
	JobID uuid.UUID `json:"job_id"`
	Error string    `json:"error"`
}

type ScheduleAnalytics struct {
	TotalJobs               int                    `json:"total_jobs"`
	HighPriorityJobs        int                    `json:"high_priority_jobs"`
	MaterialConstrainedJobs int                    `json:"material_constrained_jobs"`
	AverageScore            float64                `json:"average_score"`
	Recommendations         []string               `json:"recommendations"`
	FailedPriorityWrites    []PriorityWriteFailure `json:"failed_priority_writes,omitempty"`
}

// ScheduleResult holds pending jobs in execution order, each carrying its
// freshly computed PriorityScore.
type ScheduleResult struct {
	Jobs      []ProductionJob   `json:"jobs"`
	Analytics ScheduleAnalytics `json:"analytics"`
}
