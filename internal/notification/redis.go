package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisQueue is the list key used when none is configured.
const DefaultRedisQueue = "notifications:membership"

type listPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisSink appends events as JSON to a Redis list consumed by a delivery worker with BLPOP.
type RedisSink struct {
	client listPusher
	queue  string
}

// NewRedisSink returns a sink pushing to queue. An empty queue uses DefaultRedisQueue.
func NewRedisSink(client *redis.Client, queue string) *RedisSink {
	return newRedisSink(client, queue)
}

func newRedisSink(client listPusher, queue string) *RedisSink {
	if queue == "" {
		queue = DefaultRedisQueue
	}
	return &RedisSink{client: client, queue: queue}
}

func (s *RedisSink) Notify(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.RPush(ctx, s.queue, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}
