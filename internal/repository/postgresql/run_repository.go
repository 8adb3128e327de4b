package postgresql

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lab-production-engine/internal/entity"
)

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, kind entity.RunKind, priority int, input json.RawMessage) (uuid.UUID, error) {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	const q = `
INSERT INTO engine_runs (kind, status, priority, input)
VALUES ($1, 'pending', $2, $3)
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, string(kind), priority, input).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.EngineRun, error) {
	const q = `
SELECT id, kind, status, priority, input, output, error, created_at, updated_at
FROM engine_runs
WHERE id = $1;
`

	var (
		run         entity.EngineRun
		kindText    string
		statusText  string
		inputBytes  []byte
		outputBytes []byte
	)

	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&run.ID,
		&kindText,
		&statusText,
		&run.Priority,
		&inputBytes,
		&outputBytes, // NULL => nil
		&run.Error,   // NULL => nil
		&run.CreatedAt,
		&run.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	run.Kind = entity.RunKind(kindText)
	run.Status = entity.RunStatus(statusText)
	run.Input = json.RawMessage(inputBytes)
	if outputBytes != nil {
		run.Output = json.RawMessage(outputBytes)
	}
	return &run, nil
}

func (r *RunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.RunStatus) error {
	const q = `UPDATE engine_runs SET status=$2, updated_at=NOW() WHERE id=$1;`
	return r.exec(ctx, q, id, string(status))
}

func (r *RunRepository) SetResultDone(ctx context.Context, id uuid.UUID, output json.RawMessage) error {
	if len(output) == 0 {
		output = json.RawMessage(`{}`)
	}
	const q = `UPDATE engine_runs SET status='done', output=$2, error=NULL, updated_at=NOW() WHERE id=$1;`
	return r.exec(ctx, q, id, output)
}

func (r *RunRepository) SetResultError(ctx context.Context, id uuid.UUID, errText string) error {
	const q = `UPDATE engine_runs SET status='error', error=$2, updated_at=NOW() WHERE id=$1;`
	return r.exec(ctx, q, id, errText)
}

func (r *RunRepository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
