package deck

import (
	"context"
	"sync"

	"github.com/benvon/excuse-deck/internal/gesture"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DragResult reports what a batch of drag frames did to the front card
type DragResult struct {
	CardID    string           `json:"card_id"`
	Kind      CardKind         `json:"kind"`
	State     gesture.State    `json:"state"`
	Outcome   string           `json:"outcome,omitempty"`
	Direction models.Direction `json:"direction,omitempty"`

	// Resolution is set when the gesture finalized an event
	Resolution *Resolution `json:"-"`
}

type arming struct {
	cardID  uuid.UUID
	kind    CardKind
	eventID string
	rec     *gesture.Recognizer

	settled bool
	done    chan struct{}
	res     *Resolution
	err     error
}

// Controller keeps a gesture recognizer armed on whatever card is at the
// front of a Machine and turns finished swipes into deck transitions.
type Controller struct {
	mu       sync.Mutex
	machine  *Machine
	animator gesture.Animator
	armed    *arming
}

// NewController binds a controller to m. A nil animator completes fly-outs at once.
func NewController(m *Machine, animator gesture.Animator) *Controller {
	if animator == nil {
		animator = gesture.Instant
	}
	return &Controller{machine: m, animator: animator}
}

// Drag feeds frames to the front card and, if released, ends the gesture.
// A swipe returns once the fly-out finished and the deck transition ran.
func (c *Controller) Drag(ctx context.Context, frames []gesture.Frame, released bool) (DragResult, error) {
	c.mu.Lock()
	a, err := c.armLocked()
	if err != nil {
		c.mu.Unlock()
		return DragResult{}, err
	}

	state := a.rec.State()
	for _, f := range frames {
		state = a.rec.Move(f)
	}
	c.mu.Unlock()

	result := DragResult{CardID: a.cardID.String(), Kind: a.kind, State: state}
	if !released {
		return result, nil
	}

	// Release may run the completion callback inline; the lock must be free
	r, err := a.rec.Release().Wait(ctx)
	if err != nil {
		return result, err
	}
	result.Outcome = r.Outcome.String()
	result.Direction = r.Direction
	if r.Outcome != gesture.OutcomeSwipe {
		return result, nil
	}

	select {
	case <-a.done:
		result.Resolution = a.res
		return result, a.err
	case <-ctx.Done():
		return result, ctx.Err()
	}
}

// armLocked returns the arming for the current front card, replacing a stale one
func (c *Controller) armLocked() (*arming, error) {
	info, ok := c.machine.front()
	if !ok {
		c.armed = nil
		return nil, ErrEmptyDeck
	}

	a := c.armed
	if a == nil || a.cardID != info.id || (a.rec.Finalized() && a.settled) {
		a = c.newArming(info)
		c.armed = a
	}

	if info.confirming {
		a.rec.SetEnabled(false)
		return nil, ErrConfirmationOpen
	}
	a.rec.SetEnabled(true)
	return a, nil
}

func (c *Controller) newArming(info frontInfo) *arming {
	a := &arming{
		cardID:  info.id,
		kind:    info.kind,
		eventID: info.eventID,
		done:    make(chan struct{}),
	}

	cfg := gesture.DismissCardConfig()
	if info.kind == KindEvent {
		cfg = gesture.EventCardConfig()
	}

	a.rec = gesture.NewRecognizer(cfg, c.machine.clock, c.animator, func(r gesture.Result) {
		var (
			res *Resolution
			err error
		)
		if a.kind == KindEvent {
			res, err = c.machine.CommitSwipe(a.eventID, r.Direction)
		} else {
			err = c.machine.DismissFront(a.cardID)
		}
		if err != nil {
			c.machine.logger.Warn("deck_gesture_apply_failed",
				zap.String("card_id", a.cardID.String()),
				zap.String("direction", string(r.Direction)),
				zap.Bool("forced", r.Forced),
				zap.Error(err))
		}

		c.mu.Lock()
		a.settled = true
		a.res = res
		a.err = err
		c.mu.Unlock()
		close(a.done)
	})
	return a
}
