package deck

import (
	"context"
	"sync"

	"github.com/benvon/excuse-deck/internal/clock"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/google/uuid"
)

// Resolution is the pending outcome of a committed swipe. It resolves once the
// excuse is known, the thinking delay has passed, the result card is placed
// and the decision has been appended to the log.
type Resolution struct {
	cardID uuid.UUID
	done   chan struct{}
	once   sync.Once

	// join state, guarded by the machine mutex
	excuse       string
	excuseReady  bool
	delayElapsed bool
	applied      bool
	timer        clock.Timer

	initial  models.EventDecision
	decision models.EventDecision
	orphaned bool
	err      error
}

func newResolution(cardID uuid.UUID, d models.EventDecision) *Resolution {
	return &Resolution{cardID: cardID, done: make(chan struct{}), initial: d}
}

func (r *Resolution) finish(d models.EventDecision, orphaned bool, err error) {
	r.once.Do(func() {
		r.decision = d
		r.orphaned = orphaned
		r.err = err
		close(r.done)
	})
}

// CardID is the id of the loading card this resolution fills
func (r *Resolution) CardID() uuid.UUID {
	return r.cardID
}

// Done is closed when the resolution has been applied
func (r *Resolution) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until resolved and returns the finalized decision and any error
// from appending it to the log
func (r *Resolution) Wait(ctx context.Context) (models.EventDecision, error) {
	select {
	case <-r.done:
		return r.decision, r.err
	case <-ctx.Done():
		return models.EventDecision{}, ctx.Err()
	}
}

// Decision returns the finalized decision. Before Done is closed the excuse is empty.
func (r *Resolution) Decision() models.EventDecision {
	select {
	case <-r.done:
		return r.decision
	default:
		return r.initial
	}
}

// Orphaned reports whether the loading card was gone when the excuse arrived
func (r *Resolution) Orphaned() bool {
	select {
	case <-r.done:
		return r.orphaned
	default:
		return false
	}
}

// Err returns the log append error, if any
func (r *Resolution) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}
