package postgresql

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-production-engine/internal/entity"
)

func TestArchiveInsert_MultiRow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	alerts := []entity.Alert{
		{ID: uuid.New(), Type: entity.AlertCriticalShortage, Severity: entity.SeverityCritical, Title: "A", Data: map[string]any{"material": "A"}, Timestamp: now},
		{ID: uuid.New(), Type: entity.AlertMachineBottleneck, Severity: entity.SeverityHigh, Title: "B", Timestamp: now, RecommendedActions: []string{"Run schedule optimization"}},
	}

	q, args, err := archiveInsert(alerts)
	require.NoError(t, err)

	assert.Contains(t, q, "INSERT INTO analysis_records")
	assert.Contains(t, q, "$16")
	assert.NotContains(t, q, "?")
	assert.Contains(t, q, "ON CONFLICT (id) DO NOTHING")
	require.Len(t, args, 16)

	assert.Equal(t, alerts[0].ID, args[0])
	assert.Equal(t, "critical_shortage", args[1])
	assert.JSONEq(t, `{"material":"A"}`, string(args[5].([]byte)))
	assert.Equal(t, []string{}, args[6])
	assert.Equal(t, []string{"Run schedule optimization"}, args[14])
}
