package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// PrimaryCalendar is the calendar id of the signed-in user's main calendar
const PrimaryCalendar = "primary"

// GoogleSource lists events from Google Calendar using the token carried in
// the request context (see WithToken).
type GoogleSource struct {
	oauth      *OAuth
	calendarID string
	logger     *zap.Logger
	now        func() time.Time
	options    []option.ClientOption
}

// GoogleOption customizes a GoogleSource
type GoogleOption func(*GoogleSource)

// WithCalendarID selects a calendar other than the primary one
func WithCalendarID(id string) GoogleOption {
	return func(s *GoogleSource) {
		if id != "" {
			s.calendarID = id
		}
	}
}

// WithClientOptions appends options passed to the calendar service
func WithClientOptions(opts ...option.ClientOption) GoogleOption {
	return func(s *GoogleSource) {
		s.options = append(s.options, opts...)
	}
}

// WithNow overrides the clock used for the time window
func WithNow(now func() time.Time) GoogleOption {
	return func(s *GoogleSource) {
		s.now = now
	}
}

// NewGoogleSource creates a Google Calendar event source
func NewGoogleSource(oauth *OAuth, logger *zap.Logger, opts ...GoogleOption) *GoogleSource {
	s := &GoogleSource{
		oauth:      oauth,
		calendarID: PrimaryCalendar,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events fetches single (expanded) events between now and now+Window ordered
// by start time. Events without an id, a summary or timed start/end are skipped.
func (s *GoogleSource) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	holder := TokenFromContext(ctx)
	if holder == nil {
		return nil, ErrNotAuthenticated
	}
	tok := holder.Token()
	if tok == nil || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return nil, ErrNotAuthenticated
	}

	ts := s.oauth.TokenSource(ctx, tok)
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, s.options...)
	service, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	now := s.now().UTC()
	call := service.Events.List(s.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(Window).Format(time.RFC3339)).
		OrderBy("startTime")

	var events []models.CalendarEvent
	skipped := 0
	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			event, ok := fromGoogleEvent(item)
			if !ok {
				skipped++
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	if refreshed, err := ts.Token(); err == nil {
		holder.Update(refreshed)
	}

	s.logger.Debug("google_events_fetched",
		zap.String("calendar_id", s.calendarID),
		zap.Int("count", len(events)),
		zap.Int("skipped", skipped))

	return normalizeAll(events, s.logger, "google"), nil
}

func fromGoogleEvent(item *gcal.Event) (models.CalendarEvent, bool) {
	if item == nil || item.Id == "" || item.Summary == "" {
		return models.CalendarEvent{}, false
	}
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return models.CalendarEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return models.CalendarEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return models.CalendarEvent{}, false
	}

	return models.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		StartTime:   start,
		EndTime:     end,
		Location:    item.Location,
		Type:        item.EventType,
	}, true
}

func isAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized
	}
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}
