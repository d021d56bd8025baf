package store

import (
	"context"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/queue"
	"go.uber.org/zap"
)

// PublishingStore announces appends and clears on a queue after the wrapped
// store succeeds. Publish failures are logged and never fail the write.
type PublishingStore struct {
	DecisionStore
	publisher queue.Publisher
	logger    *zap.Logger
}

// NewPublishingStore wraps next
func NewPublishingStore(next DecisionStore, publisher queue.Publisher, logger *zap.Logger) *PublishingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishingStore{DecisionStore: next, publisher: publisher, logger: logger}
}

// Append stores d then publishes decision_finalized
func (s *PublishingStore) Append(ctx context.Context, owner string, d models.EventDecision) error {
	if err := s.DecisionStore.Append(ctx, owner, d); err != nil {
		return err
	}
	s.publish(ctx, queue.NewDecisionFinalized(owner, d))
	return nil
}

// Clear clears the log then publishes decisions_cleared
func (s *PublishingStore) Clear(ctx context.Context, owner string) error {
	if err := s.DecisionStore.Clear(ctx, owner); err != nil {
		return err
	}
	s.publish(ctx, queue.NewDecisionsCleared(owner))
	return nil
}

func (s *PublishingStore) publish(ctx context.Context, event *queue.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("decision_event_publish_failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}
}
