package models

import "time"

// DecisionStats counts the decisions recorded for one owner
type DecisionStats struct {
	Owner         string     `json:"owner"`
	Declined      int        `json:"declined"`
	Maybe         int        `json:"maybe"`
	MaybeDeclined int        `json:"maybe_declined"`
	LastDecidedAt *time.Time `json:"last_decided_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Total is the number of decisions counted
func (s DecisionStats) Total() int {
	return s.Declined + s.Maybe + s.MaybeDeclined
}

// Add counts d
func (s *DecisionStats) Add(d Decision) {
	switch d {
	case DecisionDeclined:
		s.Declined++
	case DecisionMaybe:
		s.Maybe++
	case DecisionMaybeDeclined:
		s.MaybeDeclined++
	}
}
