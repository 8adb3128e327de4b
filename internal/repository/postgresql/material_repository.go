package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lab-production-engine/internal/entity"
)

type MaterialRepository struct {
	pool *pgxpool.Pool
}

func NewMaterialRepository(pool *pgxpool.Pool) *MaterialRepository {
	return &MaterialRepository{pool: pool}
}

func (r *MaterialRepository) ListMaterials(ctx context.Context) ([]entity.Material, error) {
	const q = `
SELECT id, name, current_stock, minimum_threshold, unit_cost, supplier_id, last_ordered_at
FROM materials
ORDER BY name;
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	materials, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Material, error) {
		var m entity.Material
		err := row.Scan(&m.ID, &m.Name, &m.CurrentStock, &m.MinimumThreshold, &m.UnitCost, &m.SupplierID, &m.LastOrderedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan materials: %w", err)
	}
	return materials, nil
}

// ListConsumption returns stock decrements since the given time, oldest first.
func (r *MaterialRepository) ListConsumption(ctx context.Context, since time.Time) ([]entity.ConsumptionRecord, error) {
	const q = `
SELECT m.name, c.quantity, c.consumed_at
FROM material_consumption c
JOIN materials m ON m.id = c.material_id
WHERE c.consumed_at >= $1
ORDER BY c.consumed_at;
`
	rows, err := r.pool.Query(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("query consumption: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.ConsumptionRecord])
	if err != nil {
		return nil, fmt.Errorf("scan consumption: %w", err)
	}
	return records, nil
}
