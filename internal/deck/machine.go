// Package deck implements the swipe deck: an ordered queue of event, loading
// and result cards, the four transitions that mutate it, the right-swipe
// confirmation and the asynchronous excuse resolution.
package deck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/benvon/excuse-deck/internal/clock"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/benvon/excuse-deck/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultThinkingDelay is the minimum time between a swipe and its result card
	DefaultThinkingDelay = 1200 * time.Millisecond
	// DefaultBounceReset clears the entrance bounce flag of the new front card
	DefaultBounceReset = 10 * time.Millisecond

	appendTimeout = 5 * time.Second
)

// EventSource supplies the events a deck is built from
type EventSource interface {
	Events(ctx context.Context) ([]models.CalendarEvent, error)
}

// DecisionLog receives finalized decisions
type DecisionLog interface {
	Append(ctx context.Context, d models.EventDecision) error
	List(ctx context.Context) ([]models.EventDecision, error)
}

// ExcuseProvider always returns an excuse
type ExcuseProvider interface {
	Excuse(ctx context.Context, title, eventType string) string
}

// Option configures a Machine
type Option func(*Machine)

// WithClock sets the clock used for the thinking delay and bounce timers
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithThinkingDelay sets the delay before a result card appears. Zero
// applies the result as soon as the excuse is known.
func WithThinkingDelay(d time.Duration) Option {
	return func(m *Machine) { m.thinkingDelay = d }
}

// WithBounceReset sets how long the bounce flag stays on the new front card
func WithBounceReset(d time.Duration) Option {
	return func(m *Machine) { m.bounceReset = d }
}

// WithCelebration registers a hook fired once each time the deck is finished
func WithCelebration(fn func()) Option {
	return func(m *Machine) { m.onCelebrate = fn }
}

type confirmation struct {
	cardID  uuid.UUID
	event   models.CalendarEvent
	attempt int
}

// Machine owns one deck. All mutations are serialized by its mutex, and
// asynchronous handlers find their target card by id.
type Machine struct {
	mu sync.Mutex

	source  EventSource
	log     DecisionLog
	excuses ExcuseProvider
	clock   clock.Clock
	logger  *zap.Logger

	thinkingDelay time.Duration
	bounceReset   time.Duration
	onCelebrate   func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	cards        []Card
	hadCards     bool
	allProcessed bool
	celebrations int
	bounceID     uuid.UUID
	bounceTimer  clock.Timer
	confirm      *confirmation
	pending      map[uuid.UUID]*Resolution
	version      uint64
}

// New creates an empty deck
func New(source EventSource, log DecisionLog, excuses ExcuseProvider, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		source:        source,
		log:           log,
		excuses:       excuses,
		clock:         clock.New(),
		logger:        zap.NewNop(),
		thinkingDelay: DefaultThinkingDelay,
		bounceReset:   DefaultBounceReset,
		ctx:           ctx,
		cancel:        cancel,
		pending:       make(map[uuid.UUID]*Resolution),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load fetches events, drops the ones already decided and initializes the
// deck. It reports false without fetching when the deck is not empty or is
// finished. Source errors are wrapped, so calendar.ErrNotAuthenticated stays
// detectable with errors.Is.
func (m *Machine) Load(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrClosed
	}
	if len(m.cards) > 0 || m.allProcessed {
		m.mu.Unlock()
		return false, nil
	}
	m.mu.Unlock()

	events, err := m.fetchUndecided(ctx)
	if err != nil {
		return false, err
	}
	return m.Initialize(events), nil
}

// fetchUndecided returns the source events minus those already logged or
// waiting for their excuse
func (m *Machine) fetchUndecided(ctx context.Context) ([]models.CalendarEvent, error) {
	events, err := m.source.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	decided := m.pendingEventIDs()
	if logged, err := m.log.List(ctx); err != nil {
		m.logger.Warn("deck_decision_log_unavailable", zap.Error(err))
	} else {
		for id := range store.DecidedIDs(logged) {
			decided[id] = struct{}{}
		}
	}
	return calendar.FilterDecided(events, decided), nil
}

// Initialize builds [Event(e0), Loading, Event(e1), Loading, ...] if the deck
// is empty and not finished. Otherwise it does nothing and reports false.
func (m *Machine) Initialize(events []models.CalendarEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(m.cards) > 0 || m.allProcessed {
		return false
	}

	m.cards = buildCards(events)
	if len(m.cards) > 0 {
		m.hadCards = true
		m.version++
	}
	m.logger.Info("deck_initialized", zap.Int("events", len(events)))
	return true
}

// CommitSwipe applies a finished swipe on the event card for eventID, which
// must be at the front. Left declines, up is a maybe that leans towards
// declining, and right opens the confirmation and returns a nil Resolution.
func (m *Machine) CommitSwipe(eventID string, dir models.Direction) (*Resolution, error) {
	if !dir.Valid() {
		return nil, ErrInvalidDirection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.confirm != nil {
		m.logger.Warn("deck_swipe_during_confirmation", zap.String("event_id", eventID))
		return nil, ErrConfirmationOpen
	}

	front, ok := m.frontEventLocked()
	if !ok || front.Event.ID != eventID {
		m.logger.Warn("deck_swipe_not_front",
			zap.String("event_id", eventID),
			zap.String("direction", string(dir)))
		return nil, ErrNotFront
	}

	switch dir {
	case models.DirectionLeft:
		return m.finalizeLocked(front, models.DecisionDeclined, commentFor(models.DecisionDeclined))
	case models.DirectionUp:
		return m.finalizeLocked(front, models.DecisionMaybeDeclined, commentFor(models.DecisionMaybeDeclined))
	default:
		m.confirm = &confirmation{cardID: front.ID, event: front.Event, attempt: 1}
		m.version++
		m.logger.Info("deck_confirmation_opened", zap.String("event_id", eventID))
		return nil, nil
	}
}

// Confirm answers the open confirmation. "continue" asks again until the
// fourth attempt, which finalizes a maybe. "cancel" finalizes a decline and
// "dismiss" closes the prompt leaving the event card in place.
func (m *Machine) Confirm(action string) (*Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	c := m.confirm
	if c == nil {
		return nil, ErrNoConfirmation
	}

	switch action {
	case validation.ConfirmContinue:
		if c.attempt < MaxConfirmAttempts {
			c.attempt++
			m.version++
			return nil, nil
		}
		return m.closeConfirmationLocked(c, models.DecisionMaybe, commentFor(models.DecisionMaybe))
	case validation.ConfirmCancel:
		return m.closeConfirmationLocked(c, models.DecisionDeclined, CommentBackedOut)
	case validation.ConfirmDismiss:
		m.confirm = nil
		m.version++
		m.logger.Debug("deck_confirmation_dismissed", zap.String("event_id", c.event.ID))
		return nil, nil
	default:
		return nil, ErrInvalidAction
	}
}

func (m *Machine) closeConfirmationLocked(c *confirmation, decision models.Decision, comment string) (*Resolution, error) {
	m.confirm = nil
	m.version++
	front, ok := m.frontEventLocked()
	if !ok || front.ID != c.cardID {
		return nil, ErrNotFront
	}
	return m.finalizeLocked(front, decision, comment)
}

// DismissFront removes the loading or result card at the front. A non-nil
// cardID must match the front card. The next card is flagged to bounce once;
// if nothing is left the deck is finished and the celebration fires.
func (m *Machine) DismissFront(cardID uuid.UUID) error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if len(m.cards) == 0 {
		m.mu.Unlock()
		return ErrNotDismissible
	}
	front := m.cards[0]
	if cardID != uuid.Nil && front.CardID() != cardID {
		m.mu.Unlock()
		m.logger.Warn("deck_dismiss_not_front", zap.String("card_id", cardID.String()))
		return ErrNotFront
	}
	if front.Kind() == KindEvent {
		m.mu.Unlock()
		return ErrNotDismissible
	}

	m.cards = m.cards[1:]
	m.version++

	celebrate := false
	if len(m.cards) > 0 {
		m.setBounceLocked(m.cards[0].CardID())
	} else if m.hadCards && !m.allProcessed {
		m.allProcessed = true
		m.celebrations++
		celebrate = true
	}
	hook := m.onCelebrate
	m.mu.Unlock()

	m.logger.Debug("deck_card_dismissed",
		zap.String("card_id", front.CardID().String()),
		zap.String("kind", string(front.Kind())))

	if celebrate {
		m.logger.Info("deck_all_processed")
		if hook != nil {
			hook()
		}
	}
	return nil
}

// Reset reloads an empty deck from the source. The finished state is left
// only when the fresh list has undecided events; a failed fetch or an empty
// list keeps it, without firing the celebration again.
func (m *Machine) Reset(ctx context.Context) (bool, error) {
	if err := m.checkResettable(); err != nil {
		return false, err
	}

	events, err := m.fetchUndecided(ctx)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if len(m.cards) > 0 {
		return false, ErrDeckNotEmpty
	}

	m.confirm = nil
	m.version++
	cards := buildCards(events)
	if len(cards) == 0 {
		m.logger.Info("deck_reset_nothing_left", zap.Bool("all_processed", m.allProcessed))
		return true, nil
	}
	m.cards = cards
	m.hadCards = true
	m.allProcessed = false
	m.logger.Info("deck_reset", zap.Int("events", len(events)))
	return true, nil
}

func (m *Machine) checkResettable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if len(m.cards) > 0 {
		return ErrDeckNotEmpty
	}
	return nil
}

// Close stops timers and waits for in-flight excuse requests. Pending
// thinking delays are cut short, so every committed decision is appended
// before Close returns.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	if m.bounceTimer != nil {
		m.bounceTimer.Stop()
		m.bounceTimer = nil
	}
	var ready []*Resolution
	for _, res := range m.pending {
		if res.timer == nil || !res.timer.Stop() {
			continue
		}
		res.timer = nil
		res.delayElapsed = true
		m.wg.Done()
		if m.readyLocked(res) {
			ready = append(ready, res)
		}
	}
	m.mu.Unlock()

	for _, res := range ready {
		m.apply(res)
	}
	m.cancel()
	m.wg.Wait()
}

// AllProcessed reports whether the deck is finished
func (m *Machine) AllProcessed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allProcessed
}

// Celebrations counts how many times the deck has been finished
func (m *Machine) Celebrations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.celebrations
}

// Len returns the number of cards
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cards)
}

// finalizeLocked removes the front event card, gives its paired loading card
// the decision and starts the excuse request
func (m *Machine) finalizeLocked(front *EventCard, decision models.Decision, comment string) (*Resolution, error) {
	var loading *LoadingCard
	if len(m.cards) > 1 {
		loading, _ = m.cards[1].(*LoadingCard)
	}
	if loading == nil {
		m.logger.Error("deck_invariant_violation",
			zap.String("event_id", front.Event.ID),
			zap.Error(ErrMissingPlaceholder))
		return nil, ErrMissingPlaceholder
	}

	m.cards = m.cards[1:]
	loading.Decision = decision
	m.version++

	d := models.EventDecision{
		EventID:   front.Event.ID,
		Event:     front.Event,
		Decision:  decision,
		Comment:   comment,
		Timestamp: m.clock.Now().UTC(),
	}
	res := newResolution(loading.ID, d)
	m.pending[loading.ID] = res

	if m.thinkingDelay <= 0 {
		res.delayElapsed = true
	} else {
		m.wg.Add(1)
		res.timer = m.clock.AfterFunc(m.thinkingDelay, func() {
			defer m.wg.Done()
			m.mu.Lock()
			res.timer = nil
			res.delayElapsed = true
			ready := m.readyLocked(res)
			m.mu.Unlock()
			if ready {
				m.apply(res)
			}
		})
	}

	m.wg.Add(1)
	go m.fetchExcuse(res, front.Event)

	m.logger.Info("deck_swipe_committed",
		zap.String("event_id", front.Event.ID),
		zap.String("decision", string(decision)))
	return res, nil
}

func (m *Machine) fetchExcuse(res *Resolution, event models.CalendarEvent) {
	defer m.wg.Done()

	text := m.excuses.Excuse(m.ctx, event.Title, event.Type)

	m.mu.Lock()
	res.excuse = text
	res.excuseReady = true
	ready := m.readyLocked(res)
	m.mu.Unlock()

	if ready {
		m.apply(res)
	}
}

// readyLocked reports true exactly once, when both the excuse and the delay are in
func (m *Machine) readyLocked(res *Resolution) bool {
	if res.applied || !res.excuseReady || !res.delayElapsed {
		return false
	}
	res.applied = true
	return true
}

// apply swaps the paired loading card for a result card, found by id, and
// appends the decision. If the loading card was dismissed meanwhile the
// decision is still logged but no card is put back.
func (m *Machine) apply(res *Resolution) {
	m.mu.Lock()
	d := res.initial
	d.Excuse = res.excuse

	orphaned := true
	for i, c := range m.cards {
		if c.CardID() != res.cardID {
			continue
		}
		if _, ok := c.(*LoadingCard); ok {
			m.cards[i] = &ResultCard{
				ID:       res.cardID,
				Event:    d.Event,
				Decision: d.Decision,
				Comment:  d.Comment,
				Excuse:   d.Excuse,
			}
			orphaned = false
			m.version++
		}
		break
	}
	m.mu.Unlock()

	if orphaned {
		m.logger.Warn("deck_excuse_orphaned",
			zap.String("event_id", d.EventID),
			zap.String("card_id", res.cardID.String()))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), appendTimeout)
	err := m.log.Append(ctx, d)
	cancel()
	if err != nil {
		m.logger.Error("deck_decision_append_failed",
			zap.String("event_id", d.EventID),
			zap.Error(err))
	}

	m.mu.Lock()
	delete(m.pending, res.cardID)
	m.mu.Unlock()

	res.finish(d, orphaned, err)
}

func (m *Machine) pendingEventIDs() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{}, len(m.pending))
	for _, res := range m.pending {
		ids[res.initial.EventID] = struct{}{}
	}
	return ids
}

type frontInfo struct {
	id         uuid.UUID
	kind       CardKind
	eventID    string
	confirming bool
}

func (m *Machine) front() (frontInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.cards) == 0 {
		return frontInfo{}, false
	}
	c := m.cards[0]
	info := frontInfo{id: c.CardID(), kind: c.Kind(), confirming: m.confirm != nil}
	if ev, ok := c.(*EventCard); ok {
		info.eventID = ev.Event.ID
	}
	return info, true
}

func (m *Machine) frontEventLocked() (*EventCard, bool) {
	if len(m.cards) == 0 {
		return nil, false
	}
	front, ok := m.cards[0].(*EventCard)
	return front, ok
}

func (m *Machine) setBounceLocked(id uuid.UUID) {
	if m.bounceTimer != nil {
		m.bounceTimer.Stop()
	}
	m.bounceID = id
	m.bounceTimer = m.clock.AfterFunc(m.bounceReset, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.bounceID == id {
			m.bounceID = uuid.Nil
			m.bounceTimer = nil
			m.version++
		}
	})
}
