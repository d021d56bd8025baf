package deck

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/benvon/excuse-deck/internal/clock"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/benvon/excuse-deck/internal/validation"
	"github.com/google/uuid"
)

var testStart = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu     sync.Mutex
	events []models.CalendarEvent
	err    error
	calls  int
}

func (s *fakeSource) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.CalendarEvent(nil), s.events...), nil
}

type fakeExcuses struct {
	text  string
	block chan struct{}
}

func (f *fakeExcuses) Excuse(ctx context.Context, title, eventType string) string {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return f.text
}

func testEvents(ids ...string) []models.CalendarEvent {
	events := make([]models.CalendarEvent, 0, len(ids))
	for i, id := range ids {
		start := testStart.Add(time.Duration(i+1) * 24 * time.Hour)
		events = append(events, models.CalendarEvent{
			ID:        id,
			Title:     "Event " + id,
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			Type:      "Work",
		})
	}
	return events
}

type fixture struct {
	machine    *Machine
	clock      *clock.Fake
	source     *fakeSource
	log        *store.Log
	excuses    *fakeExcuses
	celebrated int
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()

	f := &fixture{
		clock:   clock.NewFake(testStart),
		source:  &fakeSource{events: testEvents(ids...)},
		log:     store.Bind(store.NewMemoryStore(), "session-1"),
		excuses: &fakeExcuses{text: "My cat is stuck in a tree."},
	}
	var mu sync.Mutex
	f.machine = New(f.source, f.log, f.excuses,
		WithClock(f.clock),
		WithCelebration(func() {
			mu.Lock()
			f.celebrated++
			mu.Unlock()
		}),
	)
	t.Cleanup(f.machine.Close)
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	ok, err := f.machine.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() = false, want true")
	}
}

// resolve advances past the thinking delay and waits for res
func (f *fixture) resolve(t *testing.T, res *Resolution) models.EventDecision {
	t.Helper()
	if res == nil {
		t.Fatal("Expected a resolution")
	}
	f.clock.Advance(DefaultThinkingDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d, err := res.Wait(ctx)
	if err != nil {
		t.Fatalf("Resolution.Wait() error = %v", err)
	}
	return d
}

func (f *fixture) decisions(t *testing.T) []models.EventDecision {
	t.Helper()
	decisions, err := f.log.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return decisions
}

func kinds(s Snapshot) []CardKind {
	out := make([]CardKind, 0, len(s.Cards))
	for _, c := range s.Cards {
		out = append(out, c.Kind)
	}
	return out
}

func equalKinds(a, b []CardKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInitialize_PairsEventsWithPlaceholders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if !f.machine.Initialize(testEvents("1", "2")) {
		t.Fatal("Initialize() = false on an empty deck")
	}

	snap := f.machine.Snapshot(0)
	want := []CardKind{KindEvent, KindLoading, KindEvent, KindLoading}
	if !equalKinds(kinds(snap), want) {
		t.Fatalf("Expected kinds %v, got %v", want, kinds(snap))
	}
	for _, c := range snap.Cards {
		if c.Kind == KindLoading && c.Decision != models.DecisionDeclined {
			t.Errorf("Expected placeholder decision declined, got %q", c.Decision)
		}
	}
	if !snap.Cards[0].Interactive || snap.Cards[2].Interactive {
		t.Error("Expected only the front card to be interactive")
	}

	if f.machine.Initialize(testEvents("3")) {
		t.Error("Initialize() on a non-empty deck should be a no-op")
	}
	if got := f.machine.Len(); got != 4 {
		t.Errorf("Expected 4 cards after no-op Initialize, got %d", got)
	}
}

func TestCommitSwipe_FinalizingDirections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		dir          models.Direction
		wantDecision models.Decision
		wantComment  string
	}{
		{"left declines", models.DirectionLeft, models.DecisionDeclined, CommentDeclined},
		{"up is maybe declined", models.DirectionUp, models.DecisionMaybeDeclined, CommentMaybeDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, "1", "2")
			f.load(t)
			loadingID := f.machine.Snapshot(0).Cards[1].ID

			res, err := f.machine.CommitSwipe("1", tt.dir)
			if err != nil {
				t.Fatalf("CommitSwipe() error = %v", err)
			}

			// still thinking: loading card at the front carries the decision
			snap := f.machine.Snapshot(0)
			if snap.Cards[0].Kind != KindLoading || snap.Cards[0].ID != loadingID {
				t.Fatalf("Expected paired loading card at front, got %+v", snap.Cards[0])
			}
			if snap.Cards[0].Decision != tt.wantDecision {
				t.Errorf("Expected loading decision %q, got %q", tt.wantDecision, snap.Cards[0].Decision)
			}
			if got := f.decisions(t); len(got) != 0 {
				t.Errorf("Expected no logged decision before resolution, got %d", len(got))
			}

			d := f.resolve(t, res)
			if d.Decision != tt.wantDecision || d.Comment != tt.wantComment {
				t.Errorf("Resolved %q/%q, want %q/%q", d.Decision, d.Comment, tt.wantDecision, tt.wantComment)
			}
			if res.Orphaned() {
				t.Error("Expected resolution not to be orphaned")
			}

			snap = f.machine.Snapshot(0)
			front := snap.Cards[0]
			if front.Kind != KindResult || front.ID != loadingID {
				t.Fatalf("Expected result card with loading id at front, got %+v", front)
			}
			if front.Excuse != f.excuses.text || front.Comment != tt.wantComment {
				t.Errorf("Unexpected result card %+v", front)
			}

			logged := f.decisions(t)
			if len(logged) != 1 {
				t.Fatalf("Expected exactly one logged decision, got %d", len(logged))
			}
			if logged[0].EventID != "1" || logged[0].Excuse != front.Excuse {
				t.Errorf("Logged decision %+v does not match the result card", logged[0])
			}
		})
	}
}

func TestCommitSwipe_RightConfirmation(t *testing.T) {
	t.Parallel()

	t.Run("four continues make a maybe", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1")
		f.load(t)

		res, err := f.machine.CommitSwipe("1", models.DirectionRight)
		if err != nil || res != nil {
			t.Fatalf("CommitSwipe(right) = %v, %v; want nil, nil", res, err)
		}
		snap := f.machine.Snapshot(0)
		if snap.Confirmation == nil || snap.Confirmation.Attempt != 1 {
			t.Fatalf("Expected confirmation at attempt 1, got %+v", snap.Confirmation)
		}
		if snap.Total != 2 || snap.Cards[0].Interactive {
			t.Errorf("Expected deck untouched and front locked, got %+v", snap)
		}
		if _, err := f.machine.CommitSwipe("1", models.DirectionLeft); !errors.Is(err, ErrConfirmationOpen) {
			t.Errorf("Expected ErrConfirmationOpen, got %v", err)
		}

		for attempt := 2; attempt <= MaxConfirmAttempts; attempt++ {
			res, err := f.machine.Confirm(validation.ConfirmContinue)
			if err != nil || res != nil {
				t.Fatalf("Confirm(continue) = %v, %v", res, err)
			}
			c := f.machine.Snapshot(0).Confirmation
			if c == nil || c.Attempt != attempt || c.Message != ConfirmMessage(attempt) {
				t.Fatalf("Expected attempt %d, got %+v", attempt, c)
			}
		}

		res, err = f.machine.Confirm(validation.ConfirmContinue)
		if err != nil {
			t.Fatalf("final Confirm(continue) error = %v", err)
		}
		d := f.resolve(t, res)
		if d.Decision != models.DecisionMaybe || d.Comment != CommentMaybe {
			t.Errorf("Expected maybe decision, got %+v", d)
		}
		if f.machine.Snapshot(0).Confirmation != nil {
			t.Error("Expected confirmation closed")
		}
	})

	t.Run("cancel backs out", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1")
		f.load(t)

		if _, err := f.machine.CommitSwipe("1", models.DirectionRight); err != nil {
			t.Fatalf("CommitSwipe(right) error = %v", err)
		}
		if _, err := f.machine.Confirm(validation.ConfirmContinue); err != nil {
			t.Fatalf("Confirm(continue) error = %v", err)
		}
		res, err := f.machine.Confirm(validation.ConfirmCancel)
		if err != nil {
			t.Fatalf("Confirm(cancel) error = %v", err)
		}
		d := f.resolve(t, res)
		if d.Decision != models.DecisionDeclined || d.Comment != CommentBackedOut {
			t.Errorf("Expected backed-out decline, got %+v", d)
		}
	})

	t.Run("dismiss leaves the event card", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1")
		f.load(t)

		if _, err := f.machine.CommitSwipe("1", models.DirectionRight); err != nil {
			t.Fatalf("CommitSwipe(right) error = %v", err)
		}
		res, err := f.machine.Confirm(validation.ConfirmDismiss)
		if err != nil || res != nil {
			t.Fatalf("Confirm(dismiss) = %v, %v", res, err)
		}

		snap := f.machine.Snapshot(0)
		if snap.Confirmation != nil || snap.Cards[0].Kind != KindEvent || !snap.Cards[0].Interactive {
			t.Errorf("Expected interactive event card and no confirmation, got %+v", snap)
		}
		if got := f.decisions(t); len(got) != 0 {
			t.Errorf("Expected no decisions, got %d", len(got))
		}
		if _, err := f.machine.Confirm(validation.ConfirmCancel); !errors.Is(err, ErrNoConfirmation) {
			t.Errorf("Expected ErrNoConfirmation, got %v", err)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1")
		f.load(t)
		if _, err := f.machine.CommitSwipe("1", models.DirectionRight); err != nil {
			t.Fatalf("CommitSwipe(right) error = %v", err)
		}
		if _, err := f.machine.Confirm("maybe-later"); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("Expected ErrInvalidAction, got %v", err)
		}
	})
}

func TestConfirmMessage_Fallback(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 1; i <= MaxConfirmAttempts; i++ {
		msg := ConfirmMessage(i)
		if msg == confirmFallback || seen[msg] {
			t.Errorf("Expected a distinct message for attempt %d, got %q", i, msg)
		}
		seen[msg] = true
	}
	for _, n := range []int{0, 5, -1} {
		if got := ConfirmMessage(n); got != confirmFallback {
			t.Errorf("ConfirmMessage(%d) = %q, want fallback", n, got)
		}
	}
}

func TestCommitSwipe_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("not at front", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1", "2")
		f.load(t)
		before := f.machine.Snapshot(0)

		if _, err := f.machine.CommitSwipe("2", models.DirectionLeft); !errors.Is(err, ErrNotFront) {
			t.Errorf("Expected ErrNotFront, got %v", err)
		}
		if _, err := f.machine.CommitSwipe("missing", models.DirectionLeft); !errors.Is(err, ErrNotFront) {
			t.Errorf("Expected ErrNotFront for unknown id, got %v", err)
		}
		after := f.machine.Snapshot(0)
		if after.Version != before.Version || after.Total != before.Total {
			t.Error("Expected rejected swipe to leave the deck unchanged")
		}
	})

	t.Run("invalid direction", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1")
		f.load(t)
		if _, err := f.machine.CommitSwipe("1", models.DirectionNone); !errors.Is(err, ErrInvalidDirection) {
			t.Errorf("Expected ErrInvalidDirection, got %v", err)
		}
	})

	t.Run("missing placeholder", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.machine.cards = []Card{&EventCard{ID: uuid.New(), Event: testEvents("1")[0]}}

		res, err := f.machine.CommitSwipe("1", models.DirectionLeft)
		if !errors.Is(err, ErrMissingPlaceholder) || res != nil {
			t.Fatalf("Expected ErrMissingPlaceholder, got %v, %v", res, err)
		}
		if f.machine.Len() != 1 || f.machine.Snapshot(0).Cards[0].Kind != KindEvent {
			t.Error("Expected deck left untouched")
		}
	})
}

func TestDismissFront(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1", "2")
	f.load(t)

	if err := f.machine.DismissFront(uuid.Nil); !errors.Is(err, ErrNotDismissible) {
		t.Fatalf("Expected ErrNotDismissible for an event card, got %v", err)
	}

	res, err := f.machine.CommitSwipe("1", models.DirectionLeft)
	if err != nil {
		t.Fatalf("CommitSwipe() error = %v", err)
	}
	f.resolve(t, res)

	if err := f.machine.DismissFront(uuid.New()); !errors.Is(err, ErrNotFront) {
		t.Errorf("Expected ErrNotFront for a stale card id, got %v", err)
	}
	if err := f.machine.DismissFront(res.CardID()); err != nil {
		t.Fatalf("DismissFront() error = %v", err)
	}

	snap := f.machine.Snapshot(0)
	if snap.Cards[0].Kind != KindEvent || !snap.Cards[0].Bounce {
		t.Fatalf("Expected bouncing event card at front, got %+v", snap.Cards[0])
	}

	f.clock.Advance(DefaultBounceReset)
	if f.machine.Snapshot(0).Cards[0].Bounce {
		t.Error("Expected bounce flag cleared after the reset timer")
	}
}

func TestResolution_OrphanedWhenLoadingCardDismissed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1", "2")
	f.excuses.block = make(chan struct{})
	f.load(t)

	res, err := f.machine.CommitSwipe("1", models.DirectionLeft)
	if err != nil {
		t.Fatalf("CommitSwipe() error = %v", err)
	}
	f.clock.Advance(DefaultThinkingDelay)

	if err := f.machine.DismissFront(res.CardID()); err != nil {
		t.Fatalf("DismissFront(loading) error = %v", err)
	}
	close(f.excuses.block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d, err := res.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !res.Orphaned() {
		t.Error("Expected orphaned resolution")
	}

	snap := f.machine.Snapshot(0)
	want := []CardKind{KindEvent, KindLoading}
	if !equalKinds(kinds(snap), want) {
		t.Fatalf("Expected %v, got %v", want, kinds(snap))
	}
	if snap.Cards[1].Decision != models.DecisionDeclined {
		t.Errorf("Expected the next placeholder untouched, got %q", snap.Cards[1].Decision)
	}

	logged := f.decisions(t)
	if len(logged) != 1 || logged[0].EventID != "1" || logged[0].Excuse != d.Excuse {
		t.Errorf("Expected orphaned decision still logged, got %+v", logged)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("filters decided events", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1", "2")
		if err := f.log.Append(context.Background(), models.EventDecision{
			EventID:  "1",
			Decision: models.DecisionDeclined,
		}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		f.load(t)

		snap := f.machine.Snapshot(0)
		if snap.Total != 2 || snap.Cards[0].Event.ID != "2" {
			t.Errorf("Expected only event 2, got %+v", snap.Cards)
		}
	})

	t.Run("not authenticated", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.source.err = calendar.ErrNotAuthenticated
		ok, err := f.machine.Load(context.Background())
		if ok || !errors.Is(err, calendar.ErrNotAuthenticated) {
			t.Errorf("Load() = %v, %v; want ErrNotAuthenticated", ok, err)
		}
	})

	t.Run("no refetch while cards remain", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "1")
		f.load(t)
		ok, err := f.machine.Load(context.Background())
		if ok || err != nil {
			t.Errorf("Second Load() = %v, %v; want false, nil", ok, err)
		}
		if f.source.calls != 1 {
			t.Errorf("Expected 1 source call, got %d", f.source.calls)
		}
	})
}

func TestEndToEnd_SingleEventCelebratesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1")
	f.load(t)

	res, err := f.machine.CommitSwipe("1", models.DirectionLeft)
	if err != nil {
		t.Fatalf("CommitSwipe() error = %v", err)
	}
	f.resolve(t, res)

	if f.machine.AllProcessed() {
		t.Fatal("Deck should not be finished while the result card is showing")
	}
	if err := f.machine.DismissFront(uuid.Nil); err != nil {
		t.Fatalf("DismissFront() error = %v", err)
	}

	if !f.machine.AllProcessed() || f.machine.Celebrations() != 1 || f.celebrated != 1 {
		t.Fatalf("Expected finished deck with one celebration, got processed=%v celebrations=%d hook=%d",
			f.machine.AllProcessed(), f.machine.Celebrations(), f.celebrated)
	}

	if err := f.machine.DismissFront(uuid.Nil); !errors.Is(err, ErrNotDismissible) {
		t.Errorf("Expected ErrNotDismissible on an empty deck, got %v", err)
	}
	if f.machine.Initialize(testEvents("9")) {
		t.Error("Initialize() while finished should be a no-op")
	}
	if ok, _ := f.machine.Load(context.Background()); ok {
		t.Error("Load() while finished should be a no-op")
	}
	if f.celebrated != 1 {
		t.Errorf("Expected celebration to fire once, got %d", f.celebrated)
	}

	logged := f.decisions(t)
	if len(logged) != 1 || logged[0].Decision != models.DecisionDeclined {
		t.Fatalf("Expected one declined decision, got %+v", logged)
	}

	// event 1 is decided, so the reload is empty: still finished, no new celebration
	if _, err := f.machine.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if !f.machine.AllProcessed() || f.machine.Len() != 0 || f.celebrated != 1 {
		t.Errorf("Unexpected state after reset: processed=%v len=%d hook=%d",
			f.machine.AllProcessed(), f.machine.Len(), f.celebrated)
	}
}

func TestReset_RequiresEmptyDeck(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1")
	f.load(t)
	if _, err := f.machine.Reset(context.Background()); !errors.Is(err, ErrDeckNotEmpty) {
		t.Errorf("Expected ErrDeckNotEmpty, got %v", err)
	}
}

// finish declines and dismisses every event of a loaded deck
func (f *fixture) finish(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		res, err := f.machine.CommitSwipe(id, models.DirectionLeft)
		if err != nil {
			t.Fatalf("CommitSwipe(%q) error = %v", id, err)
		}
		f.resolve(t, res)
		if err := f.machine.DismissFront(uuid.Nil); err != nil {
			t.Fatalf("DismissFront() error = %v", err)
		}
	}
	if !f.machine.AllProcessed() {
		t.Fatal("Expected the deck to be finished")
	}
}

func TestReset_FailedFetchKeepsFinishedState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1")
	f.load(t)
	f.finish(t, "1")

	f.source.mu.Lock()
	f.source.err = errors.New("network down")
	f.source.mu.Unlock()

	before := f.machine.Snapshot(0).Version
	loaded, err := f.machine.Reset(context.Background())
	if err == nil || loaded {
		t.Fatalf("Reset() = %v, %v; want false and an error", loaded, err)
	}

	snap := f.machine.Snapshot(0)
	if !snap.AllProcessed || snap.Total != 0 || snap.Celebrations != 1 {
		t.Errorf("Expected the finished state to survive, got %+v", snap)
	}
	if snap.Version != before {
		t.Errorf("Failed reset changed the version: %d -> %d", before, snap.Version)
	}

	// a later reset with a working source still succeeds
	f.source.mu.Lock()
	f.source.err = nil
	f.source.events = testEvents("1", "2")
	f.source.mu.Unlock()
	if _, err := f.machine.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if f.machine.AllProcessed() || f.machine.Len() != 2 {
		t.Errorf("Expected event 2 reloaded, got processed=%v len=%d", f.machine.AllProcessed(), f.machine.Len())
	}
}

func TestReset_Reload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		reloaded      []string
		wantLen       int
		wantProcessed bool
	}{
		{name: "everything already decided", reloaded: []string{"1"}, wantLen: 0, wantProcessed: true},
		{name: "source returns nothing", reloaded: nil, wantLen: 0, wantProcessed: true},
		{name: "new undecided event", reloaded: []string{"1", "2"}, wantLen: 2, wantProcessed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, "1")
			f.load(t)
			f.finish(t, "1")

			f.source.mu.Lock()
			f.source.events = testEvents(tt.reloaded...)
			f.source.mu.Unlock()

			loaded, err := f.machine.Reset(context.Background())
			if err != nil || !loaded {
				t.Fatalf("Reset() = %v, %v; want true, nil", loaded, err)
			}
			if f.machine.Len() != tt.wantLen || f.machine.AllProcessed() != tt.wantProcessed {
				t.Errorf("After reset len=%d processed=%v, want len=%d processed=%v",
					f.machine.Len(), f.machine.AllProcessed(), tt.wantLen, tt.wantProcessed)
			}
			if f.celebrated != 1 || f.machine.Celebrations() != 1 {
				t.Errorf("Reset must not celebrate, got hook=%d celebrations=%d", f.celebrated, f.machine.Celebrations())
			}

			if tt.wantLen > 0 {
				f.finish(t, "2")
				if f.celebrated != 2 {
					t.Errorf("Expected a second celebration after finishing the reloaded deck, got %d", f.celebrated)
				}
			}
		})
	}
}

func TestClose_AppendsPendingDecisions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1", "2")
	f.load(t)

	res, err := f.machine.CommitSwipe("1", models.DirectionUp)
	if err != nil {
		t.Fatalf("CommitSwipe() error = %v", err)
	}

	// the thinking delay never elapses on the fake clock
	f.machine.Close()

	select {
	case <-res.Done():
	default:
		t.Fatal("Expected the resolution to finish before Close returns")
	}
	logged := f.decisions(t)
	if len(logged) != 1 || logged[0].Decision != models.DecisionMaybeDeclined || logged[0].Excuse != f.excuses.text {
		t.Fatalf("Expected the pending decision to be appended, got %+v", logged)
	}
	if n := f.clock.Pending(); n != 0 {
		t.Errorf("Expected no pending timers after Close, got %d", n)
	}
}

func TestClose_RejectsMutations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1")
	f.load(t)
	f.machine.Close()

	if _, err := f.machine.CommitSwipe("1", models.DirectionLeft); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := f.machine.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Load, got %v", err)
	}
}
