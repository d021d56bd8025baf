package calendar

import (
	"context"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
)

// mockEvents are the canned events used when no provider is connected
var mockEvents = []models.CalendarEvent{
	{ID: "1", Title: "Coffee with Maria", Description: "Catch up on the latest project developments and discuss next steps.", Location: "Starbucks Downtown", Type: "Meeting"},
	{ID: "2", Title: "Team Standup", Description: "Daily team standup to discuss progress and blockers.", Location: "Conference Room A", Type: "Work"},
	{ID: "3", Title: "Dentist Appointment", Description: "Regular checkup and cleaning.", Location: "Downtown Dental", Type: "Personal"},
	{ID: "4", Title: "Birthday Party", Description: "Alex's surprise birthday party. Don't forget to bring a gift!", Location: "Rooftop Bar", Type: "Social"},
	{ID: "5", Title: "Product Demo", Description: "Presenting the new features to the client.", Location: "Client Office", Type: "Work"},
	{ID: "6", Title: "Yoga Class", Description: "Weekly yoga session to destress.", Location: "Zen Studio", Type: "Personal"},
	{ID: "7", Title: "Dinner with Parents", Description: "Monthly family dinner.", Location: "Mom's House", Type: "Family"},
	{ID: "8", Title: "Quarterly Review", Description: "Performance review with manager.", Location: "Manager's Office", Type: "Work"},
}

// GenerateTestEvents returns the canned events scheduled on consecutive days
// after now: event i starts on day i+1 at 09:00+(i mod 8)h and lasts one or
// two hours.
func GenerateTestEvents(now time.Time) []models.CalendarEvent {
	events := make([]models.CalendarEvent, len(mockEvents))
	for i, e := range mockEvents {
		day := now.AddDate(0, 0, i+1)
		start := time.Date(day.Year(), day.Month(), day.Day(), 9+(i%8), 0, 0, 0, now.Location())
		e.StartTime = start
		e.EndTime = start.Add(time.Duration(1+i%2) * time.Hour)
		events[i] = e.Normalize()
	}
	return events
}

// MockSource serves GenerateTestEvents. It never requires authentication.
type MockSource struct {
	now func() time.Time
}

// NewMockSource creates a mock source using the wall clock
func NewMockSource() *MockSource {
	return &MockSource{now: time.Now}
}

// NewMockSourceAt creates a mock source with a fixed reference time
func NewMockSourceAt(now time.Time) *MockSource {
	return &MockSource{now: func() time.Time { return now }}
}

// Events returns the generated test events
func (s *MockSource) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GenerateTestEvents(s.now()), nil
}
