// Package outbox decouples audit persistence from Kafka delivery: entries
// are enqueued in the same database as the audit trail and relayed to the
// broker by a background worker, so a broker outage never loses events.
package outbox

import (
	"context"
	"time"
)

// Message is one pending event awaiting delivery.
type Message struct {
	ID        int64
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Store persists outbox messages.
type Store interface {
	// Enqueue appends a message for later delivery.
	Enqueue(ctx context.Context, key string, payload []byte) error

	// FetchUnpublished returns up to limit undelivered messages, oldest
	// first.
	FetchUnpublished(ctx context.Context, limit int) ([]Message, error)

	// MarkPublished flags the given messages as delivered.
	MarkPublished(ctx context.Context, ids []int64) error
}

// Publisher hands a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}
