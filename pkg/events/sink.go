package events

import (
	"context"
	"encoding/json"

	"github.com/cuemby/corestate/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Sink is the dual-write target appendEvent best-effort emits to
// after the local write commits. A Sink failure is logged; it never
// fails or undoes the append.
type Sink interface {
	Publish(ctx context.Context, evt types.StoredEvent) error
}

// RedisSink publishes the JSON-encoded event to a Redis channel named
// "events:<streamId>".
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink wraps an already-configured *redis.Client.
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Publish(ctx context.Context, evt types.StoredEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, "events:"+evt.StreamID, payload).Err()
}
