package queue

import (
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/google/uuid"
)

// EventType identifies what happened to a decision log
type EventType string

const (
	// EventDecisionFinalized is published after a decision is appended
	EventDecisionFinalized EventType = "decision_finalized"
	// EventDecisionsCleared is published after an owner's log is cleared
	EventDecisionsCleared EventType = "decisions_cleared"
)

// Event is one decision log notification on the queue
type Event struct {
	ID         uuid.UUID             `json:"id"`
	Type       EventType             `json:"type"`
	Owner      string                `json:"owner"`
	Decision   *models.EventDecision `json:"decision,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	RetryCount int                   `json:"retry_count"`
	MaxRetries int                   `json:"max_retries"`
}

// NewDecisionFinalized creates the event for an appended decision
func NewDecisionFinalized(owner string, d models.EventDecision) *Event {
	e := newEvent(EventDecisionFinalized, owner)
	e.Decision = &d
	return e
}

// NewDecisionsCleared creates the event for a cleared log
func NewDecisionsCleared(owner string) *Event {
	return newEvent(EventDecisionsCleared, owner)
}

func newEvent(t EventType, owner string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       t,
		Owner:      owner,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: 3,
	}
}

// CanRetry checks if the event can be redelivered
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *Event) IncrementRetry() {
	e.RetryCount++
}
