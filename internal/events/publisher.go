package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher sends one event to a named channel, fire-and-forget from the
// caller's point of view: a failed publish never unwinds a committed
// trade.
type Publisher interface {
	Publish(ctx context.Context, topic string, evt Event) error
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := p.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// FanoutPublisher forwards to an external publisher and the in-process
// bus so connected WebSocket clients see the same stream subscribers on
// the broker do.
type FanoutPublisher struct {
	next Publisher
	bus  *Bus
}

func NewFanoutPublisher(next Publisher, bus *Bus) *FanoutPublisher {
	return &FanoutPublisher{next: next, bus: bus}
}

func (p *FanoutPublisher) Publish(ctx context.Context, topic string, evt Event) error {
	if p.bus != nil {
		p.bus.Publish(evt)
	}
	if p.next == nil {
		return nil
	}
	return p.next.Publish(ctx, topic, evt)
}

// NopPublisher drops everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
