// Package realtime pushes engine results to Redis for the dashboard fan-out
// layer and reads live machine state from Redis.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher publishes JSON payloads on Redis pub/sub channels and keeps the
// latest payload per channel under "<channel>:latest" for late subscribers.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, LatestKey(channel), b, 0)
	pipe.Publish(ctx, channel, b)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func LatestKey(channel string) string {
	return channel + ":latest"
}
