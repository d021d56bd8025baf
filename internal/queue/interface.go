package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *Event
}

// Publisher sends decision events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// EventQueue is a durable queue of decision events
type EventQueue interface {
	Publisher

	// Consume returns a channel of messages. The caller acknowledges each one.
	// Prefetch controls how many unacknowledged messages the consumer holds.
	// Both channels are closed when ctx is cancelled or the connection drops.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
