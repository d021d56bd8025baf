package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
)

func TestMemoryQueuePublishConsume(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(4)
	defer func() { _ = q.Close() }()

	event := NewDecisionFinalized("owner-1", models.EventDecision{EventID: "1", Decision: models.DecisionDeclined})
	if err := q.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, _, err := q.Consume(ctx, 1)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case msg := <-msgs:
		got := msg.GetEvent()
		if got.ID != event.ID || got.Type != EventDecisionFinalized || got.Decision.EventID != "1" {
			t.Errorf("Unexpected event: %+v", got)
		}
		if err := msg.Nack(true); err != nil {
			t.Fatalf("Nack() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	select {
	case msg := <-msgs:
		if msg.GetEvent().ID != event.ID {
			t.Error("Expected requeued event to be redelivered")
		}
		_ = msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for redelivery")
	}
}

func TestMemoryQueueClosed(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(1)
	_ = q.Close()

	if err := q.Publish(context.Background(), NewDecisionsCleared("o")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	if err := q.HealthCheck(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected HealthCheck to fail after Close, got %v", err)
	}
}

func TestEventRetry(t *testing.T) {
	t.Parallel()

	e := NewDecisionsCleared("o")
	for i := 0; i < e.MaxRetries; i++ {
		if !e.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i)
		}
		e.IncrementRetry()
	}
	if e.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}
