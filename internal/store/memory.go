package store

import (
	"context"
	"errors"
	"sync"

	"github.com/benvon/excuse-deck/internal/models"
)

// ErrClosed is returned by a MemoryStore after Close
var ErrClosed = errors.New("store closed")

// MemoryStore keeps decision logs in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	logs   map[string][]models.EventDecision
	closed bool
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]models.EventDecision)}
}

// Append adds d to owner's log
func (s *MemoryStore) Append(ctx context.Context, owner string, d models.EventDecision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.logs[owner] = append(s.logs[owner], d)
	return nil
}

// List returns a copy of owner's log
func (s *MemoryStore) List(ctx context.Context, owner string) ([]models.EventDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]models.EventDecision, len(s.logs[owner]))
	copy(out, s.logs[owner])
	return out, nil
}

// Clear drops owner's log. Clearing an empty log is not an error.
func (s *MemoryStore) Clear(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.logs, owner)
	return nil
}

// Close releases all logs
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.logs = nil
	return nil
}
