package entity

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertLowStock          AlertType = "low_stock"
	AlertMachineBottleneck AlertType = "machine_bottleneck"
	AlertProductionDelay   AlertType = "production_delay"
	AlertCriticalShortage  AlertType = "critical_shortage"
	AlertEfficiencyDrop    AlertType = "efficiency_drop"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (0) to critical (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Alert is a proactive operational warning emitted by the reactive monitor.
type Alert struct {
	ID                 uuid.UUID      `json:"id"`
	Type               AlertType      `json:"type"`
	Severity           Severity       `json:"severity"`
	Title              string         `json:"title"`
	Message            string         `json:"message"`
	Data               map[string]any `json:"data"`
	Timestamp          time.Time      `json:"timestamp"`
	Actionable         bool           `json:"actionable"`
	RecommendedActions []string       `json:"recommended_actions,omitempty"`
}

type SystemMetrics struct {
	PendingJobs        int     `json:"pending_jobs"`
	LowStockMaterials  int     `json:"low_stock_materials"`
	MachineUtilization float64 `json:"machine_utilization"`
	Efficiency         float64 `json:"efficiency"`
	CriticalAlerts     int     `json:"critical_alerts"`
}

// MonitorReport is the output of one reactive monitor run.
type MonitorReport struct {
	Alerts          []Alert       `json:"alerts"`
	Metrics         SystemMetrics `json:"metrics"`
	Recommendations []string      `json:"recommendations"`
	FailedChecks    []string      `json:"failed_checks,omitempty"`
}
