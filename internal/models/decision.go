package models

import (
	"time"
)

// Decision is the outcome recorded for a swiped event
type Decision string

const (
	DecisionDeclined      Decision = "declined"
	DecisionMaybe         Decision = "maybe"
	DecisionMaybeDeclined Decision = "maybe-declined"
)

// Valid reports whether d is one of the known decisions
func (d Decision) Valid() bool {
	switch d {
	case DecisionDeclined, DecisionMaybe, DecisionMaybeDeclined:
		return true
	default:
		return false
	}
}

// Label returns the human readable badge text for a decision
func (d Decision) Label() string {
	switch d {
	case DecisionDeclined:
		return "Declined"
	case DecisionMaybe:
		return "Maybe"
	case DecisionMaybeDeclined:
		return "Maybe → Declined"
	default:
		return "Unknown"
	}
}

// Direction is a classified swipe direction. The zero value means no direction.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
)

// Valid reports whether d is a concrete swipe direction
func (d Direction) Valid() bool {
	switch d {
	case DirectionLeft, DirectionRight, DirectionUp:
		return true
	default:
		return false
	}
}

// EventDecision is one finalized entry of the decision log.
// Event is a snapshot copy taken when the swipe was committed.
type EventDecision struct {
	EventID   string        `json:"eventId" validate:"required"`
	Event     CalendarEvent `json:"event"`
	Decision  Decision      `json:"decision" validate:"required,decision"`
	Comment   string        `json:"comment,omitempty"`
	Excuse    string        `json:"excuse,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
