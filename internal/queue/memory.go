package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned after Close
var ErrQueueClosed = errors.New("queue closed")

// MemoryQueue is an in-process EventQueue used when no broker is configured
// and in tests. Nacked messages with requeue are redelivered.
type MemoryQueue struct {
	mu     sync.Mutex
	ch     chan *Event
	closed bool
}

// NewMemoryQueue creates a queue buffering up to size events
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan *Event, size)}
}

// Publish enqueues the event or fails when the buffer is full
func (q *MemoryQueue) Publish(ctx context.Context, event *Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("queue full")
	}
}

// Consume delivers queued events until ctx is cancelled or the queue closes
func (q *MemoryQueue) Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}
	msgChan := make(chan MessageInterface, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}
				select {
				case msgChan <- &memoryMessage{queue: q, event: event}:
				case <-ctx.Done():
					_ = q.requeue(event)
					return
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// Len returns the number of buffered events
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) requeue(event *Event) error {
	return q.Publish(context.Background(), event)
}

// HealthCheck reports ErrQueueClosed after Close
func (q *MemoryQueue) HealthCheck(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return ctx.Err()
}

// Close stops delivery. Buffered events are dropped.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}

type memoryMessage struct {
	queue *MemoryQueue
	event *Event
}

func (m *memoryMessage) Ack() error {
	return nil
}

func (m *memoryMessage) Nack(requeue bool) error {
	if !requeue {
		return nil
	}
	return m.queue.requeue(m.event)
}

func (m *memoryMessage) GetEvent() *Event {
	return m.event
}
