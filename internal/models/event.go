package models

import (
	"time"
)

// DefaultEventType is used when the provider does not classify an event
const DefaultEventType = "Event"

// CalendarEvent is the provider-independent event record shown on an event card.
// Events are immutable once fetched.
type CalendarEvent struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Location    string    `json:"location,omitempty"`
	Type        string    `json:"type"`
}

// Normalize fills defaults and converts times to UTC
func (e CalendarEvent) Normalize() CalendarEvent {
	if e.Type == "" {
		e.Type = DefaultEventType
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return e
}

// Context returns the short phrase used to ask for an excuse for this event
func (e CalendarEvent) Context() string {
	return ExcuseContext(e.Title, e.Type)
}

// ExcuseContext builds the excuse request context for an event title and type
func ExcuseContext(title, eventType string) string {
	if eventType == "" {
		eventType = DefaultEventType
	}
	return `missing "` + title + `" (a ` + eventType + ` event)`
}
