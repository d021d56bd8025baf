// Package workers holds the background consumers of decision events.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/excuse-deck/internal/logger"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/queue"
	"go.uber.org/zap"
)

// ErrMalformedEvent marks events that can never be processed
var ErrMalformedEvent = errors.New("malformed decision event")

// StatsRecorder is the part of the statistics repository the recorder writes to
type StatsRecorder interface {
	Record(ctx context.Context, owner string, decision models.Decision, decidedAt time.Time) error
	Reset(ctx context.Context, owner string) error
}

// DecisionRecorder keeps the decision counters in step with the decision events
type DecisionRecorder struct {
	stats     StatsRecorder
	publisher queue.Publisher // for redelivering failed events with a bumped retry count
	logger    *zap.Logger
}

// NewDecisionRecorder creates a decision recorder
func NewDecisionRecorder(stats StatsRecorder, publisher queue.Publisher, logger *zap.Logger) *DecisionRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionRecorder{stats: stats, publisher: publisher, logger: logger}
}

// Run processes messages until ctx is cancelled or msgs is closed
func (r *DecisionRecorder) Run(ctx context.Context, msgs <-chan queue.MessageInterface, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				r.logger.Info("queue_consumer_closed")
				return
			}
			if err := r.ProcessMessage(ctx, msg); err != nil {
				event := msg.GetEvent()
				r.logger.Error("decision_event_failed",
					zap.String("event_id", event.ID.String()),
					zap.String("event_type", string(event.Type)),
					zap.Error(err))
			}
		}
	}
}

// ProcessMessage applies one event and acknowledges it. Failed events are
// republished until their retries are spent, then dead-lettered.
func (r *DecisionRecorder) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()

	err := r.apply(ctx, event)
	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack event: %w", ackErr)
		}
		return nil
	}

	if errors.Is(err, ErrMalformedEvent) {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("decision_event_nack_failed", zap.Error(nackErr))
		}
		return err
	}
	return r.retry(ctx, msg, event, err)
}

func (r *DecisionRecorder) apply(ctx context.Context, event *queue.Event) error {
	if event == nil || event.Owner == "" {
		return fmt.Errorf("%w: owner is required", ErrMalformedEvent)
	}

	switch event.Type {
	case queue.EventDecisionFinalized:
		if event.Decision == nil || !event.Decision.Decision.Valid() {
			return fmt.Errorf("%w: decision is required", ErrMalformedEvent)
		}
		if err := r.stats.Record(ctx, event.Owner, event.Decision.Decision, event.Decision.Timestamp); err != nil {
			return err
		}
		r.logger.Info("decision_recorded",
			zap.String("owner", logger.HashSessionID(event.Owner)),
			zap.String("event_id", logger.SanitizeEventID(event.Decision.EventID)),
			zap.String("decision", string(event.Decision.Decision)))
		return nil

	case queue.EventDecisionsCleared:
		if err := r.stats.Reset(ctx, event.Owner); err != nil {
			return err
		}
		r.logger.Info("decision_stats_reset", zap.String("owner", logger.HashSessionID(event.Owner)))
		return nil

	default:
		return fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, event.Type)
	}
}

func (r *DecisionRecorder) retry(ctx context.Context, msg queue.MessageInterface, event *queue.Event, cause error) error {
	if !event.CanRetry() || r.publisher == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("decision_event_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("giving up after %d retries: %w", event.RetryCount, cause)
	}

	retried := *event
	retried.IncrementRetry()
	if err := r.publisher.Publish(ctx, &retried); err != nil {
		// the broker keeps the original for another delivery
		if nackErr := msg.Nack(true); nackErr != nil {
			r.logger.Warn("decision_event_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("failed to republish event: %w", err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack event: %w", ackErr)
	}

	r.logger.Warn("decision_event_retry",
		zap.String("event_id", event.ID.String()),
		zap.Int("retry_count", retried.RetryCount),
		zap.Error(cause))
	return nil
}
