package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"lab-production-engine/internal/entity"
)

const DefaultMachineStatusKey = "machines:status"

// MachineRegistry reads machine states from a Redis hash
// (field = machine id, value = AVAILABLE | BUSY | MAINTENANCE).
type MachineRegistry struct {
	rdb *redis.Client
	key string
}

func NewMachineRegistry(rdb *redis.Client, key string) *MachineRegistry {
	if key == "" {
		key = DefaultMachineStatusKey
	}
	return &MachineRegistry{rdb: rdb, key: key}
}

func (r *MachineRegistry) MachineStatuses(ctx context.Context) (map[string]entity.MachineStatus, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read machine registry %s: %w", r.key, err)
	}
	out := make(map[string]entity.MachineStatus, len(raw))
	for id, st := range raw {
		out[id] = entity.MachineStatus(strings.ToUpper(strings.TrimSpace(st)))
	}
	return out, nil
}

// SetStatus is used by seeding tools and tests.
func (r *MachineRegistry) SetStatus(ctx context.Context, machineID string, status entity.MachineStatus) error {
	return r.rdb.HSet(ctx, r.key, machineID, string(status)).Err()
}
