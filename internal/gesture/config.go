// Package gesture classifies drag input on the front card of the deck and
// decides when a swipe is committed.
package gesture

import "time"

const (
	// EventCardThreshold is the full-swipe displacement for event cards
	EventCardThreshold = 80
	// DismissCardThreshold is the full-swipe displacement for loading and result cards
	DismissCardThreshold = 50
	// DefaultCommitProgress is the progress at which a swipe becomes irrevocable
	DefaultCommitProgress = 0.7
	// DefaultCommitVelocity is the primary-axis speed (units/ms) that commits a swipe
	DefaultCommitVelocity = 0.5
	// DefaultReleaseGrace is how long a committed gesture waits for a release
	DefaultReleaseGrace = 300 * time.Millisecond
)

// Config tunes a Recognizer
type Config struct {
	Threshold      float64
	CommitProgress float64
	CommitVelocity float64
	// AllowUp enables the three-way left/right/up classification. Without it
	// every drag is read as left or right by the sign of dx, and the larger
	// axis counts as displacement.
	AllowUp      bool
	ReleaseGrace time.Duration
}

// EventCardConfig is used for event cards
func EventCardConfig() Config {
	return Config{
		Threshold:      EventCardThreshold,
		CommitProgress: DefaultCommitProgress,
		CommitVelocity: DefaultCommitVelocity,
		AllowUp:        true,
		ReleaseGrace:   DefaultReleaseGrace,
	}
}

// DismissCardConfig is used for loading and result cards
func DismissCardConfig() Config {
	return Config{
		Threshold:      DismissCardThreshold,
		CommitProgress: DefaultCommitProgress,
		CommitVelocity: DefaultCommitVelocity,
		ReleaseGrace:   DefaultReleaseGrace,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = EventCardThreshold
	}
	if c.CommitProgress <= 0 {
		c.CommitProgress = DefaultCommitProgress
	}
	if c.CommitVelocity <= 0 {
		c.CommitVelocity = DefaultCommitVelocity
	}
	if c.ReleaseGrace <= 0 {
		c.ReleaseGrace = DefaultReleaseGrace
	}
	return c
}
