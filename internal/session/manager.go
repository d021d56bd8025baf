// Package session keeps one deck per browser session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/excuse-deck/internal/clock"
	"github.com/benvon/excuse-deck/internal/deck"
	"github.com/benvon/excuse-deck/internal/gesture"
	"go.uber.org/zap"
)

// Factory builds the deck for a new session id
type Factory func(id string) *deck.Machine

// Session is one live deck and the gesture controller driving it
type Session struct {
	ID         string
	Machine    *deck.Machine
	Controller *deck.Controller

	lastSeen time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used for idle tracking
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithAnimator sets the fly-out animator handed to every controller
func WithAnimator(a gesture.Animator) Option {
	return func(m *Manager) { m.animator = a }
}

// Manager owns the sessions and evicts the ones idle for longer than the idle timeout
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  Factory
	idle     time.Duration
	clock    clock.Clock
	animator gesture.Animator
	logger   *zap.Logger
}

// NewManager creates a manager. idle <= 0 disables eviction.
func NewManager(factory Factory, idle time.Duration, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		idle:     idle,
		clock:    clock.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for id, creating it on first use, and marks it active
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = now
		return s
	}

	machine := m.factory(id)
	s := &Session{
		ID:         id,
		Machine:    machine,
		Controller: deck.NewController(machine, m.animator),
		lastSeen:   now,
	}
	m.sessions[id] = s
	m.logger.Debug("session_created", zap.Int("sessions", len(m.sessions)))
	return s
}

// Lookup returns an existing session without creating or touching it
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes every session idle for longer than the idle timeout
func (m *Manager) EvictIdle() int {
	if m.idle <= 0 {
		return 0
	}

	m.mu.Lock()
	cutoff := m.clock.Now().Add(-m.idle)
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Machine.Close()
	}
	if len(expired) > 0 {
		m.logger.Info("sessions_evicted", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Start runs the eviction loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	if m.idle <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	interval := m.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// Close closes every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Machine.Close()
	}
}
