package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func sampleDecisions() []models.EventDecision {
	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	return []models.EventDecision{
		{
			EventID: "1",
			Event: models.CalendarEvent{
				ID:          "1",
				Title:       "Coffee with Maria",
				Description: "Catch up on the latest project developments.",
				StartTime:   start,
				EndTime:     start.Add(time.Hour),
				Location:    "Starbucks Downtown",
				Type:        "Meeting",
			},
			Decision:  models.DecisionDeclined,
			Comment:   "Swiped left. Not happening.",
			Excuse:    "My goldfish needs me.",
			Timestamp: start.Add(-time.Hour),
		},
		{
			EventID:   "2",
			Event:     models.CalendarEvent{ID: "2", Title: "Team Standup", StartTime: start, EndTime: start.Add(30 * time.Minute), Type: "Work"},
			Decision:  models.DecisionMaybe,
			Comment:   "Fine, you might go. We'll call it a maybe.",
			Excuse:    "Traffic.",
			Timestamp: start.Add(-30 * time.Minute),
		},
	}
}

func assertSameDecisions(t *testing.T, got, want []models.EventDecision) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d decisions, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.EventID != w.EventID || g.Decision != w.Decision || g.Comment != w.Comment || g.Excuse != w.Excuse {
			t.Errorf("decision %d = %+v, want %+v", i, g, w)
		}
		if !g.Timestamp.Equal(w.Timestamp) {
			t.Errorf("decision %d timestamp = %v, want %v", i, g.Timestamp, w.Timestamp)
		}
		ge, we := g.Event, w.Event
		if ge.ID != we.ID || ge.Title != we.Title || ge.Description != we.Description ||
			ge.Location != we.Location || ge.Type != we.Type {
			t.Errorf("decision %d event = %+v, want %+v", i, ge, we)
		}
		if !ge.StartTime.Equal(we.StartTime) || !ge.EndTime.Equal(we.EndTime) {
			t.Errorf("decision %d event times = %v-%v, want %v-%v", i, ge.StartTime, ge.EndTime, we.StartTime, we.EndTime)
		}
	}
}

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, s DecisionStore) {
	t.Helper()
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	other := "other-" + uuid.NewString()

	want := sampleDecisions()
	for _, d := range want {
		if err := s.Append(ctx, owner, d); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := s.Append(ctx, other, want[0]); err != nil {
		t.Fatalf("Append(other) error = %v", err)
	}

	got, err := s.List(ctx, owner)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	assertSameDecisions(t, got, want)

	for i := 0; i < 2; i++ {
		if err := s.Clear(ctx, owner); err != nil {
			t.Fatalf("Clear() #%d error = %v", i+1, err)
		}
		got, err = s.List(ctx, owner)
		if err != nil {
			t.Fatalf("List() after clear error = %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("Expected empty log after clear #%d, got %d", i+1, len(got))
		}
	}

	otherLog, err := s.List(ctx, other)
	if err != nil {
		t.Fatalf("List(other) error = %v", err)
	}
	if len(otherLog) != 1 {
		t.Errorf("Clear leaked into another owner: %d entries", len(otherLog))
	}
	_ = s.Clear(ctx, other)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreListReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Append(ctx, "o", sampleDecisions()[0])

	list, _ := s.List(ctx, "o")
	list[0].Comment = "mutated"

	again, _ := s.List(ctx, "o")
	if again[0].Comment == "mutated" {
		t.Error("List() exposed internal storage")
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	_ = s.Close()
	if err := s.Append(context.Background(), "o", sampleDecisions()[0]); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	s, err := NewRedisStoreFromURL(context.Background(), redisURL, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStoreFromURL() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	exerciseStore(t, s)
}

func TestRedisKey(t *testing.T) {
	t.Parallel()

	s := NewRedisStore(nil, 0)
	if got := s.Key("abc"); got != "event-decisions:abc" {
		t.Errorf("Key() = %q", got)
	}
}

func TestBind(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	log := Bind(s, "session-1")
	ctx := context.Background()

	for _, d := range sampleDecisions() {
		if err := log.Append(ctx, d); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	list, err := log.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	ids := DecidedIDs(list)
	if _, ok := ids["2"]; !ok || len(ids) != 2 {
		t.Errorf("DecidedIDs() = %v", ids)
	}

	direct, _ := s.List(ctx, "session-1")
	if len(direct) != 2 {
		t.Errorf("Bound log did not write to owner key, got %d entries", len(direct))
	}
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*queue.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event *queue.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestPublishingStore(t *testing.T) {
	t.Parallel()

	pub := &mockPublisher{}
	s := NewPublishingStore(NewMemoryStore(), pub, zap.NewNop())
	ctx := context.Background()

	d := sampleDecisions()[0]
	if err := s.Append(ctx, "o", d); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Clear(ctx, "o"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("Expected 2 published events, got %d", len(pub.events))
	}
	if pub.events[0].Type != queue.EventDecisionFinalized || pub.events[0].Decision.EventID != d.EventID {
		t.Errorf("Unexpected first event: %+v", pub.events[0])
	}
	if pub.events[1].Type != queue.EventDecisionsCleared || pub.events[1].Owner != "o" {
		t.Errorf("Unexpected second event: %+v", pub.events[1])
	}
}

func TestPublishingStorePublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	inner := NewMemoryStore()
	s := NewPublishingStore(inner, &mockPublisher{err: errors.New("broker down")}, zap.NewNop())

	if err := s.Append(context.Background(), "o", sampleDecisions()[0]); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	list, _ := inner.List(context.Background(), "o")
	if len(list) != 1 {
		t.Errorf("Expected decision to be stored, got %d", len(list))
	}
}

func TestPublishingStoreSkipsPublishOnStoreError(t *testing.T) {
	t.Parallel()

	inner := NewMemoryStore()
	_ = inner.Close()
	pub := &mockPublisher{}
	s := NewPublishingStore(inner, pub, zap.NewNop())

	if err := s.Append(context.Background(), "o", sampleDecisions()[0]); err == nil {
		t.Fatal("Expected error from closed store")
	}
	if len(pub.events) != 0 {
		t.Errorf("Expected no events, got %d", len(pub.events))
	}
}

func TestRedisEntryRoundTrip(t *testing.T) {
	t.Parallel()

	berlin := time.FixedZone("CEST", 2*60*60)
	start := time.Date(2025, 6, 3, 18, 30, 0, 123456789, berlin)

	tests := []struct {
		name string
		want []models.EventDecision
	}{
		{name: "empty log", want: []models.EventDecision{}},
		{name: "sample log", want: sampleDecisions()},
		{
			name: "optional fields and zoned nanosecond times",
			want: []models.EventDecision{
				{
					EventID: "evt-\u00e9\n",
					Event: models.CalendarEvent{
						ID:          "evt-\u00e9\n",
						Title:       "Dinner \"with\" Parents",
						Description: "Monthly family dinner.\nBring dessert.",
						StartTime:   start,
						EndTime:     start.Add(90 * time.Minute),
						Location:    "Mom's House",
						Type:        "Family",
					},
					Decision:  models.DecisionMaybeDeclined,
					Comment:   "You said maybe, but you probably wanted to decline anyway.",
					Excuse:    "My houseplant scheduled a crisis.",
					Timestamp: start.Add(-48 * time.Hour),
				},
				{
					EventID:   "bare",
					Event:     models.CalendarEvent{ID: "bare", Title: "Yoga Class", StartTime: start, EndTime: start.Add(time.Hour)},
					Decision:  models.DecisionDeclined,
					Timestamp: start,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := make([]string, 0, len(tt.want))
			for _, d := range tt.want {
				data, err := encodeEntry(d)
				if err != nil {
					t.Fatalf("encodeEntry() error = %v", err)
				}
				raw = append(raw, string(data))
			}

			got, err := decodeEntries(raw)
			if err != nil {
				t.Fatalf("decodeEntries() error = %v", err)
			}
			assertSameDecisions(t, got, tt.want)
		})
	}
}

func TestDecodeEntriesRejectsCorruptEntry(t *testing.T) {
	t.Parallel()

	data, err := encodeEntry(sampleDecisions()[0])
	if err != nil {
		t.Fatalf("encodeEntry() error = %v", err)
	}
	if _, err := decodeEntries([]string{string(data), "{not json"}); err == nil {
		t.Error("Expected an error for a corrupt entry")
	}
}
