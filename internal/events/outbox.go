package events

import (
	"context"
	"log/slog"

	"lv-marginfx/internal/metrics"
)

// Outbox collects the events of one trade while its transaction is in
// flight and flushes them, in order, after commit. Publish failures are
// logged with the topic and an identifying key and swallowed: the trade
// is already durable by the time the outbox flushes.
type Outbox struct {
	pub     Publisher
	log     *slog.Logger
	pending []queued
}

type queued struct {
	topic string
	key   string
	evt   Event
}

func NewOutbox(pub Publisher, log *slog.Logger) *Outbox {
	return &Outbox{pub: pub, log: log}
}

// Add queues an event. key identifies the entity (order/position/deal id)
// for failure logging.
func (o *Outbox) Add(topic, key string, evt Event) {
	o.pending = append(o.pending, queued{topic: topic, key: key, evt: evt})
}

func (o *Outbox) Flush(ctx context.Context) {
	for _, q := range o.pending {
		if err := o.pub.Publish(ctx, q.topic, q.evt); err != nil {
			metrics.EventPublishFailures.Inc()
			o.log.Error("event publish failed",
				"topic", q.topic,
				"type", q.evt.Type,
				"key", q.key,
				"err", err,
			)
		}
	}
	o.pending = o.pending[:0]
}
