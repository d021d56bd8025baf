package gesture

import (
	"time"

	"github.com/benvon/excuse-deck/internal/clock"
	"github.com/benvon/excuse-deck/internal/models"
)

// Animator plays the off-screen fly-out of a swiped card. The returned channel
// is closed when the animation has finished.
type Animator interface {
	FlyOut(dir models.Direction, velocity float64) <-chan struct{}
}

// AnimatorFunc adapts a function to Animator
type AnimatorFunc func(dir models.Direction, velocity float64) <-chan struct{}

// FlyOut calls f
func (f AnimatorFunc) FlyOut(dir models.Direction, velocity float64) <-chan struct{} {
	return f(dir, velocity)
}

// Instant finishes every fly-out immediately
var Instant Animator = AnimatorFunc(func(models.Direction, float64) <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
})

// TimedAnimator models a fly-out of fixed duration on a clock
type TimedAnimator struct {
	Clock    clock.Clock
	Duration time.Duration
}

// FlyOut closes the channel after Duration
func (a TimedAnimator) FlyOut(models.Direction, float64) <-chan struct{} {
	done := make(chan struct{})
	a.Clock.AfterFunc(a.Duration, func() { close(done) })
	return done
}
