package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/emersion/go-ical"
	"go.uber.org/zap"
)

// ICSSource reads events from an iCalendar feed URL
type ICSSource struct {
	url    string
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewICSSource creates an event source for an iCalendar feed
func NewICSSource(url string, client *http.Client, logger *zap.Logger) *ICSSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ICSSource{url: url, client: client, logger: logger, now: time.Now}
}

// Events downloads the feed and returns the events starting within Window
func (s *ICSSource) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrNotAuthenticated
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	now := s.now()
	events, err := ParseICS(resp.Body, now, now.Add(Window))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("ics_events_fetched", zap.Int("count", len(events)))
	return normalizeAll(events, s.logger, "ics"), nil
}

// ParseICS decodes every VEVENT starting in [from, to) and sorts them by start
// time. Events without a UID get an id derived from start time and summary.
func ParseICS(r io.Reader, from, to time.Time) ([]models.CalendarEvent, error) {
	decoder := ical.NewDecoder(r)

	var events []models.CalendarEvent
	seen := make(map[string]bool)
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			event, ok := fromICalEvent(comp)
			if !ok {
				continue
			}
			if event.StartTime.Before(from) || !event.StartTime.Before(to) {
				continue
			}
			if seen[event.ID] {
				continue
			}
			seen[event.ID] = true
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func fromICalEvent(comp *ical.Component) (models.CalendarEvent, bool) {
	var event models.CalendarEvent

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		event.Title = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		event.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		event.Location = prop.Value
	}
	if prop := comp.Props.Get(ical.PropCategories); prop != nil {
		event.Type = strings.TrimSpace(strings.Split(prop.Value, ",")[0])
	}

	start := comp.Props.Get(ical.PropDateTimeStart)
	end := comp.Props.Get(ical.PropDateTimeEnd)
	if start == nil || end == nil || event.Title == "" {
		return event, false
	}
	// all-day events carry VALUE=DATE and are not shown as cards
	if start.ValueType() == ical.ValueDate {
		return event, false
	}

	var err error
	if event.StartTime, err = start.DateTime(time.UTC); err != nil {
		return event, false
	}
	if event.EndTime, err = end.DateTime(time.UTC); err != nil {
		return event, false
	}

	if prop := comp.Props.Get(ical.PropUID); prop != nil && prop.Value != "" {
		event.ID = prop.Value
	} else {
		event.ID = event.StartTime.UTC().Format(time.RFC3339) + "-" + event.Title
	}
	return event, true
}
