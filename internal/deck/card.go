package deck

import (
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/google/uuid"
)

// CardKind tags the three card variants
type CardKind string

const (
	KindEvent   CardKind = "event"
	KindLoading CardKind = "loading"
	KindResult  CardKind = "result"
)

// Card is one entry of the deck. The set of implementations is closed.
type Card interface {
	CardID() uuid.UUID
	Kind() CardKind
	card()
}

// EventCard is an undecided event waiting for a swipe
type EventCard struct {
	ID    uuid.UUID
	Event models.CalendarEvent
}

// LoadingCard holds the slot behind an event card while its excuse is produced.
// Decision is the placeholder value until the event card in front of it is swiped.
type LoadingCard struct {
	ID       uuid.UUID
	Decision models.Decision
}

// ResultCard is the terminal card for a decided event. It keeps the id of the
// loading card it replaced.
type ResultCard struct {
	ID       uuid.UUID
	Event    models.CalendarEvent
	Decision models.Decision
	Comment  string
	Excuse   string
}

func (c *EventCard) CardID() uuid.UUID   { return c.ID }
func (c *LoadingCard) CardID() uuid.UUID { return c.ID }
func (c *ResultCard) CardID() uuid.UUID  { return c.ID }

func (*EventCard) Kind() CardKind   { return KindEvent }
func (*LoadingCard) Kind() CardKind { return KindLoading }
func (*ResultCard) Kind() CardKind  { return KindResult }

func (*EventCard) card()   {}
func (*LoadingCard) card() {}
func (*ResultCard) card()  {}

// buildCards pairs every event with a declined placeholder
func buildCards(events []models.CalendarEvent) []Card {
	cards := make([]Card, 0, 2*len(events))
	for _, e := range events {
		cards = append(cards,
			&EventCard{ID: uuid.New(), Event: e},
			&LoadingCard{ID: uuid.New(), Decision: models.DecisionDeclined},
		)
	}
	return cards
}
