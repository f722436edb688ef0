package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix prefixes Redis pub/sub channels; the subject is appended.
const ChannelPrefix = "pawfeed:events:"

// RedisPublisher publishes events over Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a publisher; a nil client drops events.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	if p.rdb == nil {
		return nil
	}
	data, err := encode(e)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}
	return p.rdb.Publish(ctx, ChannelPrefix+e.Subject, data).Err()
}

func (p *RedisPublisher) Backend() string { return "redis" }

// Close is a no-op; the Redis client is shared with the cache.
func (p *RedisPublisher) Close() error {
	return nil
}
