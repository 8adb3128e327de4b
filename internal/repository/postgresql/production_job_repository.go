package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lab-production-engine/internal/entity"
)

type ProductionJobRepository struct {
	pool *pgxpool.Pool
}

func NewProductionJobRepository(pool *pgxpool.Pool) *ProductionJobRepository {
	return &ProductionJobRepository{pool: pool}
}

const selectJobsSQL = `
SELECT id, job_code, job_type, status, priority, priority_score, priority_version,
       machine_id, estimated_duration, patient_eta, urgency_override,
       material_requirements, created_at
FROM production_jobs
`

func (r *ProductionJobRepository) ListPendingJobs(ctx context.Context) ([]entity.ProductionJob, error) {
	return r.list(ctx, selectJobsSQL+`WHERE status = 'PENDING' ORDER BY created_at, id;`)
}

func (r *ProductionJobRepository) ListAllJobs(ctx context.Context) ([]entity.ProductionJob, error) {
	return r.list(ctx, selectJobsSQL+`ORDER BY created_at, id;`)
}

func (r *ProductionJobRepository) list(ctx context.Context, q string, args ...any) ([]entity.ProductionJob, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query production jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, scanProductionJob)
	if err != nil {
		return nil, fmt.Errorf("scan production jobs: %w", err)
	}
	return jobs, nil
}

func scanProductionJob(row pgx.CollectableRow) (entity.ProductionJob, error) {
	var (
		j         entity.ProductionJob
		statusTxt string
		reqBytes  []byte
	)
	if err := row.Scan(
		&j.ID,
		&j.JobCode,
		&j.JobType,
		&statusTxt,
		&j.Priority, // NULL => nil
		&j.PriorityScore,
		&j.PriorityVersion,
		&j.MachineID,         // NULL => nil
		&j.EstimatedDuration, // NULL => nil
		&j.PatientETA,        // NULL => nil
		&j.UrgencyOverride,
		&reqBytes,
		&j.CreatedAt,
	); err != nil {
		return j, err
	}

	j.Status = entity.JobStatus(statusTxt)
	j.MaterialRequirements = map[string]int{}
	if len(reqBytes) > 0 {
		if err := json.Unmarshal(reqBytes, &j.MaterialRequirements); err != nil {
			return j, fmt.Errorf("job %s material_requirements: %w", j.ID, err)
		}
	}
	return j, nil
}

// UpdateJobPriority stores the optimizer score. Concurrent optimizer runs
// race here and the last write wins; priority_version counts the writes.
func (r *ProductionJobRepository) UpdateJobPriority(ctx context.Context, jobID uuid.UUID, score float64) error {
	const q = `
UPDATE production_jobs
SET priority_score = $2, priority_version = priority_version + 1, updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, q, jobID, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
