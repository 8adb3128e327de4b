package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LanePriorityLow    = 0
	LanePriorityNormal = 1
	LanePriorityHigh   = 2
)

// RunQueue delivers engine run ids to workers at least once.
type RunQueue interface {
	RunEnqueuer
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, runID string) error
	RequeueStale(ctx context.Context, olderThan time.Duration, maxPerLane int64) (int64, error)
	Depth(ctx context.Context) (map[string]int64, error)
}

type Lane struct {
	Name          string
	QueueKey      string
	ProcessingKey string
}

// LanesFromBase derives the low/normal/high lanes from base key names.
func LanesFromBase(queueKey, processingKey string) (low, normal, high Lane) {
	mk := func(name string) Lane {
		return Lane{Name: name, QueueKey: queueKey + ":" + name, ProcessingKey: processingKey + ":" + name}
	}
	return mk("low"), mk("normal"), mk("high")
}

// redisRunQueue keeps one Redis list pair per lane.
// Claim:   BRPOPLPUSH lane.queue -> lane.processing, high lane first; the
// lane goes to processingMapKey and the claim time to claimedAtKey.
// Ack:     LREM from the processing list recorded in processingMapKey.
// Requeue: only ids whose claim is older than the visibility timeout.
type redisRunQueue struct {
	rdb              *redis.Client
	processingMapKey string
	claimedAtKey     string // ZSET run id -> claim time (unix ms)
	lanes            []Lane // high -> low
}

func NewRedisRunQueue(rdb *redis.Client, processingMapKey string, low, normal, high Lane) RunQueue {
	return &redisRunQueue{
		rdb:              rdb,
		processingMapKey: processingMapKey,
		claimedAtKey:     processingMapKey + ":claimed_at",
		lanes:            []Lane{high, normal, low},
	}
}

func (q *redisRunQueue) laneFor(priority int) Lane {
	switch {
	case priority >= LanePriorityHigh:
		return q.lanes[0]
	case priority == LanePriorityNormal:
		return q.lanes[1]
	default:
		return q.lanes[2]
	}
}

func (q *redisRunQueue) Enqueue(ctx context.Context, runID string, priority int) error {
	return q.rdb.LPush(ctx, q.laneFor(priority).QueueKey, runID).Err()
}

// ClaimBlocking polls lanes in priority order with short blocking slots so a
// high-priority run never waits behind a long block on a lower lane.
// A non-positive timeout blocks until ctx is done.
func (q *redisRunQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	forever := timeout <= 0
	deadline := time.Now().Add(timeout)

	slot := time.Second
	if !forever && timeout < slot {
		slot = timeout
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, ln := range q.lanes {
			wait := slot
			if !forever {
				remain := time.Until(deadline)
				if remain <= 0 {
					return "", redis.Nil
				}
				wait = min(wait, remain)
			}

			id, err := q.rdb.BRPopLPush(ctx, ln.QueueKey, ln.ProcessingKey, wait).Result()
			if err == nil {
				if mErr := q.markClaimed(ctx, id, ln); mErr != nil {
					return "", mErr
				}
				return id, nil
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return "", err
		}
	}
}

func (q *redisRunQueue) markClaimed(ctx context.Context, runID string, ln Lane) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.processingMapKey, runID, ln.ProcessingKey)
		pipe.ZAdd(ctx, q.claimedAtKey, redis.Z{Score: float64(time.Now().UnixMilli()), Member: runID})
		return nil
	})
	return err
}

func (q *redisRunQueue) Ack(ctx context.Context, runID string) error {
	processingKey, err := q.rdb.HGet(ctx, q.processingMapKey, runID).Result()
	if errors.Is(err, redis.Nil) {
		// no mapping: remove from every processing list
		for _, ln := range q.lanes {
			_ = q.rdb.LRem(ctx, ln.ProcessingKey, 1, runID).Err()
		}
		return q.rdb.ZRem(ctx, q.claimedAtKey, runID).Err()
	}
	if err != nil {
		return err
	}

	if err := q.rdb.LRem(ctx, processingKey, 1, runID).Err(); err != nil {
		return err
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, q.processingMapKey, runID)
		pipe.ZRem(ctx, q.claimedAtKey, runID)
		return nil
	})
	return err
}

// RequeueStale moves ids claimed more than olderThan ago back to their
// queues (at-least-once). Ids claimed recently are still being worked on and
// stay put. An id found in a processing list without a claim time (the
// claimer died between the move and the bookkeeping) gets its clock started
// now and is picked up by a later pass.
func (q *redisRunQueue) RequeueStale(ctx context.Context, olderThan time.Duration, maxPerLane int64) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan).UnixMilli()

	var moved int64
	for _, ln := range q.lanes {
		ids, err := q.rdb.LRange(ctx, ln.ProcessingKey, 0, -1).Result()
		if err != nil {
			return moved, err
		}

		var laneMoved int64
		for _, id := range ids {
			if laneMoved >= maxPerLane {
				break
			}

			claimedAt, err := q.rdb.ZScore(ctx, q.claimedAtKey, id).Result()
			if errors.Is(err, redis.Nil) {
				orphan := redis.Z{Score: float64(now.UnixMilli()), Member: id}
				if err := q.rdb.ZAddNX(ctx, q.claimedAtKey, orphan).Err(); err != nil {
					return moved, err
				}
				continue
			}
			if err != nil {
				return moved, err
			}
			if int64(claimedAt) > cutoff {
				continue
			}

			n, err := q.rdb.LRem(ctx, ln.ProcessingKey, 1, id).Result()
			if err != nil {
				return moved, err
			}
			if n == 0 {
				// acked since LRANGE
				continue
			}
			_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LPush(ctx, ln.QueueKey, id)
				pipe.HDel(ctx, q.processingMapKey, id)
				pipe.ZRem(ctx, q.claimedAtKey, id)
				return nil
			})
			if err != nil {
				return moved, err
			}
			moved++
			laneMoved++
		}
	}
	return moved, nil
}

func (q *redisRunQueue) Depth(ctx context.Context) (map[string]int64, error) {
	pipe := q.rdb.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(q.lanes))
	for _, ln := range q.lanes {
		cmds[ln.Name] = pipe.LLen(ctx, ln.QueueKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(cmds))
	for name, c := range cmds {
		out[name] = c.Val()
	}
	return out, nil
}
