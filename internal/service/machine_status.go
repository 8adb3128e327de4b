package service

import (
	"context"
	"maps"

	"lab-production-engine/internal/entity"
)

// DefaultMachineStatuses is the seed table used when no registry is configured.
func DefaultMachineStatuses() map[string]entity.MachineStatus {
	return map[string]entity.MachineStatus{
		"milling-01": entity.MachineAvailable,
		"milling-02": entity.MachineBusy,
		"printer-01": entity.MachineAvailable,
		"printer-02": entity.MachineBusy,
		"furnace-01": entity.MachineMaintenance,
		"scanner-01": entity.MachineAvailable,
	}
}

// StaticMachineStatus serves a fixed table.
type StaticMachineStatus struct {
	statuses map[string]entity.MachineStatus
}

func NewStaticMachineStatus(statuses map[string]entity.MachineStatus) *StaticMachineStatus {
	if statuses == nil {
		statuses = DefaultMachineStatuses()
	}
	return &StaticMachineStatus{statuses: maps.Clone(statuses)}
}

func (s *StaticMachineStatus) MachineStatuses(ctx context.Context) (map[string]entity.MachineStatus, error) {
	return maps.Clone(s.statuses), nil
}
