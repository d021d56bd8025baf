// Package calendar fetches upcoming events from a calendar provider and
// normalizes them into models.CalendarEvent values.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/validation"
	"go.uber.org/zap"
)

// Window is how far ahead of now events are fetched
const Window = 14 * 24 * time.Hour

// ErrNotAuthenticated is returned when the provider has no usable credentials
// for the caller. Handlers map it to 401.
var ErrNotAuthenticated = errors.New("calendar: not authenticated")

// Source returns the events the deck is built from, ordered by start time
type Source interface {
	Events(ctx context.Context) ([]models.CalendarEvent, error)
}

// SourceFunc adapts a plain function to Source
type SourceFunc func(ctx context.Context) ([]models.CalendarEvent, error)

// Events calls f(ctx)
func (f SourceFunc) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	return f(ctx)
}

// FilterDecided drops events whose id is already in decided
func FilterDecided(events []models.CalendarEvent, decided map[string]struct{}) []models.CalendarEvent {
	if len(decided) == 0 {
		return events
	}
	filtered := make([]models.CalendarEvent, 0, len(events))
	for _, e := range events {
		if _, ok := decided[e.ID]; ok {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// normalizeAll normalizes events and skips the ones that fail validation
func normalizeAll(events []models.CalendarEvent, logger *zap.Logger, source string) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0, len(events))
	for _, e := range events {
		e = e.Normalize()
		if err := validation.ValidateEvent(e); err != nil {
			logger.Warn("calendar_event_skipped",
				zap.String("source", source),
				zap.String("event_id", e.ID),
				zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out
}
