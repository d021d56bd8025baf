package gesture

import (
	"context"
	"math"
	"sync"

	"github.com/benvon/excuse-deck/internal/clock"
	"github.com/benvon/excuse-deck/internal/models"
)

// Outcome is how a gesture ended
type Outcome int

const (
	// OutcomeNone means the recognizer was disabled or already finalized
	OutcomeNone Outcome = iota
	// OutcomeSwipe means the card flew out
	OutcomeSwipe
	// OutcomeReset means the card returned to its rest pose
	OutcomeReset
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSwipe:
		return "swipe"
	case OutcomeReset:
		return "reset"
	default:
		return "none"
	}
}

// Result describes a finished gesture
type Result struct {
	Outcome   Outcome
	Direction models.Direction
	Velocity  float64
	// Forced is set when the safety timer completed the swipe
	Forced bool
}

// State is the per-frame feedback for rendering
type State struct {
	Direction models.Direction `json:"direction,omitempty"`
	Progress  float64          `json:"progress"`
	Committed bool             `json:"committed"`
	DX        float64          `json:"dx"`
	DY        float64          `json:"dy"`
}

// Completion resolves once when a gesture ends. For swipes that is after the
// fly-out animation finished.
type Completion struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func resolved(r Result) *Completion {
	c := newCompletion()
	c.resolve(r)
	return c
}

func (c *Completion) resolve(r Result) {
	c.once.Do(func() {
		c.result = r
		close(c.done)
	})
}

// Done is closed when the result is available
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the gesture ends or ctx is done
func (c *Completion) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the result. It is only meaningful after Done is closed.
func (c *Completion) Result() Result {
	select {
	case <-c.done:
		return c.result
	default:
		return Result{}
	}
}

// Recognizer tracks one pointer interaction on one card. A swipe finalizes
// it for good; a reset leaves it ready for the next gesture.
type Recognizer struct {
	mu         sync.Mutex
	cfg        Config
	clock      clock.Clock
	animator   Animator
	onComplete func(Result)

	enabled   bool
	finalized bool
	committed bool
	lastDir   models.Direction
	lastSpeed float64
	last      Frame
	safety    clock.Timer
	pending   *Completion
}

// NewRecognizer creates an enabled recognizer. onComplete runs once, after the
// fly-out of a swipe finishes, and never for resets.
func NewRecognizer(cfg Config, clk clock.Clock, animator Animator, onComplete func(Result)) *Recognizer {
	if clk == nil {
		clk = clock.New()
	}
	if animator == nil {
		animator = Instant
	}
	return &Recognizer{
		cfg:        cfg.withDefaults(),
		clock:      clk,
		animator:   animator,
		onComplete: onComplete,
		enabled:    true,
	}
}

// SetEnabled turns input handling on or off. Disabling drops the in-progress
// gesture unless it is already committed.
func (r *Recognizer) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
	if !enabled && !r.committed && !r.finalized {
		r.resetLocked()
	}
}

// Enabled reports whether input is accepted
func (r *Recognizer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled && !r.finalized
}

// Finalized reports whether the recognizer has swiped its card
func (r *Recognizer) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Move feeds one frame and returns the tentative classification
func (r *Recognizer) Move(f Frame) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled || r.finalized {
		return State{}
	}

	dir, displacement, speed := Classify(r.cfg, f)
	progress := Progress(r.cfg, displacement)

	if dir != models.DirectionNone {
		r.lastDir = dir
		r.lastSpeed = speed
		if progress >= r.cfg.CommitProgress || speed > r.cfg.CommitVelocity {
			r.committed = true
		}
	}
	r.last = f

	if r.committed {
		r.armSafetyLocked()
	}

	return State{
		Direction: dir,
		Progress:  progress,
		Committed: r.committed,
		DX:        f.DX,
		DY:        f.DY,
	}
}

// State returns the feedback for the last frame
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	dir, displacement, _ := Classify(r.cfg, r.last)
	return State{
		Direction: dir,
		Progress:  Progress(r.cfg, displacement),
		Committed: r.committed,
		DX:        r.last.DX,
		DY:        r.last.DY,
	}
}

// Release ends the gesture. A committed gesture, or one whose displacement
// exceeds the threshold, flies out; anything else resets to rest.
func (r *Recognizer) Release() *Completion {
	return r.release(false)
}

func (r *Recognizer) release(forced bool) *Completion {
	r.mu.Lock()

	if r.finalized {
		c := r.pending
		r.mu.Unlock()
		if c == nil {
			return resolved(Result{Outcome: OutcomeNone})
		}
		return c
	}
	if !r.enabled && !r.committed {
		r.mu.Unlock()
		return resolved(Result{Outcome: OutcomeNone})
	}

	r.stopSafetyLocked()

	_, displacement, _ := Classify(r.cfg, r.last)
	swipe := r.lastDir != models.DirectionNone && (r.committed || displacement > r.cfg.Threshold)
	if !swipe {
		r.resetLocked()
		r.mu.Unlock()
		return resolved(Result{Outcome: OutcomeReset})
	}

	r.finalized = true
	result := Result{
		Outcome:   OutcomeSwipe,
		Direction: r.lastDir,
		Velocity:  r.lastSpeed,
		Forced:    forced,
	}
	completion := newCompletion()
	r.pending = completion
	animator, onComplete := r.animator, r.onComplete
	r.mu.Unlock()

	// fly-out speed is twice the release speed, at least 1 unit/ms
	done := animator.FlyOut(result.Direction, math.Max(result.Velocity*2, 1))
	finish := func() {
		completion.resolve(result)
		if onComplete != nil {
			onComplete(result)
		}
	}

	select {
	case <-done:
		finish()
	default:
		go func() {
			<-done
			finish()
		}()
	}
	return completion
}

func (r *Recognizer) resetLocked() {
	r.stopSafetyLocked()
	r.committed = false
	r.lastDir = models.DirectionNone
	r.lastSpeed = 0
	r.last = Frame{}
}

func (r *Recognizer) armSafetyLocked() {
	r.stopSafetyLocked()
	r.safety = r.clock.AfterFunc(r.cfg.ReleaseGrace, func() {
		r.release(true)
	})
}

func (r *Recognizer) stopSafetyLocked() {
	if r.safety != nil {
		r.safety.Stop()
		r.safety = nil
	}
}
