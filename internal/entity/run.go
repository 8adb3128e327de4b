package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunDone       RunStatus = "done"
	RunError      RunStatus = "error"
)

// RunKind names one of the engine operations a queued run executes.
type RunKind string

const (
	RunOptimize RunKind = "optimize"
	RunMonitor  RunKind = "monitor"
	RunForecast RunKind = "forecast"
)

// EngineRun is an asynchronously executed engine invocation.
type EngineRun struct {
	ID        uuid.UUID       `json:"id"`
	Kind      RunKind         `json:"kind"`
	Status    RunStatus       `json:"status"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Priority  int             `json:"priority" db:"priority"`
}
