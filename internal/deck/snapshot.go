package deck

import (
	"github.com/benvon/excuse-deck/internal/models"
)

// DefaultVisibleCards is how many cards a client renders at once
const DefaultVisibleCards = 3

// CardView is the render model of one card
type CardView struct {
	ID            string                `json:"id"`
	Kind          CardKind              `json:"kind"`
	Event         *models.CalendarEvent `json:"event,omitempty"`
	Decision      models.Decision       `json:"decision,omitempty"`
	DecisionLabel string                `json:"decision_label,omitempty"`
	Comment       string                `json:"comment,omitempty"`
	Excuse        string                `json:"excuse,omitempty"`
	Bounce        bool                  `json:"bounce,omitempty"`
	Interactive   bool                  `json:"interactive"`
}

// ConfirmationView is the render model of the right-swipe prompt
type ConfirmationView struct {
	EventID     string `json:"event_id"`
	Title       string `json:"title"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Message     string `json:"message"`
}

// Snapshot is a consistent copy of the deck state
type Snapshot struct {
	Cards        []CardView        `json:"cards"`
	Total        int               `json:"total"`
	AllProcessed bool              `json:"all_processed"`
	Celebrations int               `json:"celebrations"`
	Confirmation *ConfirmationView `json:"confirmation,omitempty"`
	Pending      int               `json:"pending"`
	Version      uint64            `json:"version"`
}

// Snapshot copies the state of the first limit cards; limit <= 0 copies all.
// Only the front card is interactive, and not while a confirmation is open.
func (m *Machine) Snapshot(limit int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.cards)
	if limit > 0 && limit < n {
		n = limit
	}

	snap := Snapshot{
		Cards:        make([]CardView, 0, n),
		Total:        len(m.cards),
		AllProcessed: m.allProcessed,
		Celebrations: m.celebrations,
		Pending:      len(m.pending),
		Version:      m.version,
	}
	for i, c := range m.cards[:n] {
		v := viewOf(c)
		v.Bounce = c.CardID() == m.bounceID
		v.Interactive = i == 0 && m.confirm == nil
		snap.Cards = append(snap.Cards, v)
	}
	if c := m.confirm; c != nil {
		snap.Confirmation = &ConfirmationView{
			EventID:     c.event.ID,
			Title:       c.event.Title,
			Attempt:     c.attempt,
			MaxAttempts: MaxConfirmAttempts,
			Message:     ConfirmMessage(c.attempt),
		}
	}
	return snap
}

func viewOf(c Card) CardView {
	v := CardView{ID: c.CardID().String(), Kind: c.Kind()}
	switch card := c.(type) {
	case *EventCard:
		e := card.Event
		v.Event = &e
	case *LoadingCard:
		v.Decision = card.Decision
		v.DecisionLabel = card.Decision.Label()
	case *ResultCard:
		e := card.Event
		v.Event = &e
		v.Decision = card.Decision
		v.DecisionLabel = card.Decision.Label()
		v.Comment = card.Comment
		v.Excuse = card.Excuse
	}
	return v
}
