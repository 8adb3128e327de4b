package entity

import (
	"time"

	"github.com/google/uuid"
)

// Material is a consumable inventory line. Name is the join key against
// ProductionJob.MaterialRequirements.
type Material struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	CurrentStock     int        `json:"current_stock"`
	MinimumThreshold int        `json:"minimum_threshold"`
	UnitCost         float64    `json:"unit_cost"`
	SupplierID       string     `json:"supplier_id"`
	LastOrderedAt    *time.Time `json:"last_ordered_at,omitempty"`
}

// ConsumptionRecord is one stock decrement written by the procedure-event
// pipeline.
type ConsumptionRecord struct {
	MaterialName string    `json:"material_name"`
	Quantity     int       `json:"quantity"`
	ConsumedAt   time.Time `json:"consumed_at"`
}

// StockByName indexes material stock by name.
func StockByName(materials []Material) map[string]int {
	out := make(map[string]int, len(materials))
	for _, m := range materials {
		out[m.Name] = m.CurrentStock
	}
	return out
}
