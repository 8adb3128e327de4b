package service_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/service"
)

func TestLanesFromBase(t *testing.T) {
	low, normal, high := service.LanesFromBase("q", "p")
	assert.Equal(t, service.Lane{Name: "low", QueueKey: "q:low", ProcessingKey: "p:low"}, low)
	assert.Equal(t, "q:normal", normal.QueueKey)
	assert.Equal(t, "p:high", high.ProcessingKey)
}

func TestStaticMachineStatus_ReturnsCopies(t *testing.T) {
	src := service.NewStaticMachineStatus(nil)
	got, err := src.MachineStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.MachineMaintenance, got["furnace-01"])

	got["furnace-01"] = entity.MachineAvailable
	again, _ := src.MachineStatuses(context.Background())
	assert.Equal(t, entity.MachineMaintenance, again["furnace-01"])
}

// Runs against a live Redis when REDIS_ADDR is set.
func TestRedisRunQueue_HighLaneFirstAndRequeueAfterVisibilityTimeout(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	defer rdb.Close()

	prefix := "test:" + uuid.NewString()
	low, normal, high := service.LanesFromBase(prefix+":queue", prefix+":processing")
	mapKey := prefix + ":processing:map"
	t.Cleanup(func() {
		keys := []string{mapKey, mapKey + ":claimed_at"}
		for _, ln := range []service.Lane{low, normal, high} {
			keys = append(keys, ln.QueueKey, ln.ProcessingKey)
		}
		rdb.Del(context.Background(), keys...)
	})

	q := service.NewRedisRunQueue(rdb, mapKey, low, normal, high)
	require.NoError(t, q.Enqueue(ctx, "low-run", service.LanePriorityLow))
	require.NoError(t, q.Enqueue(ctx, "high-run", service.LanePriorityHigh))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth["low"])
	assert.Equal(t, int64(1), depth["high"])

	id, err := q.ClaimBlocking(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "high-run", id)

	// claimed just now: a worker is still on it
	moved, err := q.RequeueStale(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), moved)
	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth["high"])

	time.Sleep(5 * time.Millisecond)
	moved, err = q.RequeueStale(ctx, time.Millisecond, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	id, err = q.ClaimBlocking(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "high-run", id)
	require.NoError(t, q.Ack(ctx, id))

	// acked ids leave no claim behind for the reaper
	n, err := rdb.ZCard(ctx, mapKey+":claimed_at").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	id, err = q.ClaimBlocking(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "low-run", id)
}

func TestRedisRunQueue_RequeueStaleAdoptsUnclaimedEntries(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	defer rdb.Close()

	prefix := "test:" + uuid.NewString()
	low, normal, high := service.LanesFromBase(prefix+":queue", prefix+":processing")
	mapKey := prefix + ":processing:map"
	t.Cleanup(func() {
		keys := []string{mapKey, mapKey + ":claimed_at"}
		for _, ln := range []service.Lane{low, normal, high} {
			keys = append(keys, ln.QueueKey, ln.ProcessingKey)
		}
		rdb.Del(context.Background(), keys...)
	})

	// moved into processing by a worker that died before recording the claim
	require.NoError(t, rdb.LPush(ctx, normal.ProcessingKey, "orphan-run").Err())

	q := service.NewRedisRunQueue(rdb, mapKey, low, normal, high)
	moved, err := q.RequeueStale(ctx, time.Millisecond, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), moved, "first pass only starts the clock")

	time.Sleep(5 * time.Millisecond)
	moved, err = q.RequeueStale(ctx, time.Millisecond, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	id, err := q.ClaimBlocking(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "orphan-run", id)
}
