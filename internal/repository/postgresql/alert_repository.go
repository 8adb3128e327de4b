package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"lab-production-engine/internal/entity"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// AlertRepository archives monitor alerts as analysis records for the
// dashboards.
type AlertRepository struct {
	pool *pgxpool.Pool
}

func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

// ArchiveAlerts writes all alerts in one multi-row insert. Re-archiving an
// alert id is a no-op.
func (r *AlertRepository) ArchiveAlerts(ctx context.Context, alerts []entity.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	q, args, err := archiveInsert(alerts)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("archive alerts: %w", err)
	}
	return nil
}

func archiveInsert(alerts []entity.Alert) (string, []any, error) {
	ins := psql.Insert("analysis_records").
		Columns("id", "alert_type", "severity", "title", "message", "data", "recommended_actions", "created_at").
		Suffix("ON CONFLICT (id) DO NOTHING")

	for _, a := range alerts {
		data, err := json.Marshal(a.Data)
		if err != nil {
			return "", nil, fmt.Errorf("marshal alert %s data: %w", a.ID, err)
		}
		actions := a.RecommendedActions
		if actions == nil {
			actions = []string{}
		}
		ins = ins.Values(a.ID, string(a.Type), string(a.Severity), a.Title, a.Message, data, actions, a.Timestamp)
	}

	q, args, err := ins.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build archive insert: %w", err)
	}
	return q, args, nil
}
