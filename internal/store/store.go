// Package store persists the decision log. Entries are only appended or
// cleared in bulk; List returns them in append order.
package store

import (
	"context"

	"github.com/benvon/excuse-deck/internal/models"
)

// DecisionStore keeps one decision log per owner (a deck session)
type DecisionStore interface {
	Append(ctx context.Context, owner string, d models.EventDecision) error
	List(ctx context.Context, owner string) ([]models.EventDecision, error)
	Clear(ctx context.Context, owner string) error
}

// Log is a DecisionStore bound to one owner
type Log struct {
	store DecisionStore
	owner string
}

// Bind returns the log of owner in s
func Bind(s DecisionStore, owner string) *Log {
	return &Log{store: s, owner: owner}
}

// Owner returns the bound owner
func (l *Log) Owner() string {
	return l.owner
}

// Append adds d to the owner's log
func (l *Log) Append(ctx context.Context, d models.EventDecision) error {
	return l.store.Append(ctx, l.owner, d)
}

// List returns the owner's log in append order
func (l *Log) List(ctx context.Context) ([]models.EventDecision, error) {
	return l.store.List(ctx, l.owner)
}

// Clear removes every entry of the owner's log
func (l *Log) Clear(ctx context.Context) error {
	return l.store.Clear(ctx, l.owner)
}

// DecidedIDs returns the set of event ids already present in decisions
func DecidedIDs(decisions []models.EventDecision) map[string]struct{} {
	ids := make(map[string]struct{}, len(decisions))
	for _, d := range decisions {
		ids[d.EventID] = struct{}{}
	}
	return ids
}
