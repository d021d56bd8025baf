package commands

import (
	"io"
	"time"

	"github.com/benvon/excuse-deck/internal/deck"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const timeLayout = "Mon Jan 2 15:04"

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func renderEvents(w io.Writer, events []models.CalendarEvent) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Type", "Start", "End", "Location"})
	for _, e := range events {
		tw.AppendRow(table.Row{
			e.ID,
			text.Trim(e.Title, 40),
			e.Type,
			e.StartTime.Local().Format(timeLayout),
			e.EndTime.Local().Format(timeLayout),
			text.Trim(e.Location, 30),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(events)})
	tw.Render()
}

func renderDecisions(w io.Writer, decisions []models.EventDecision) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"#", "Event", "Decision", "Decided", "Excuse"})
	for i, d := range decisions {
		tw.AppendRow(table.Row{
			i + 1,
			text.Trim(d.Event.Title, 32),
			d.Decision.Label(),
			d.Timestamp.Local().Format(time.DateTime),
			text.WrapSoft(d.Excuse, 60),
		})
	}
	tw.Render()
}

func renderStats(w io.Writer, s *models.DecisionStats) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Decision", "Count"})
	tw.AppendRow(table.Row{models.DecisionDeclined.Label(), s.Declined})
	tw.AppendRow(table.Row{models.DecisionMaybe.Label(), s.Maybe})
	tw.AppendRow(table.Row{models.DecisionMaybeDeclined.Label(), s.MaybeDeclined})
	tw.AppendFooter(table.Row{"Total", s.Total()})
	tw.Render()
}

// renderDeck prints the visible cards, front first
func renderDeck(w io.Writer, snap deck.Snapshot) {
	tw := newTable(w)
	tw.SetTitle("Deck: %d cards", snap.Total)
	tw.AppendHeader(table.Row{"", "Card", "Details"})
	for i, c := range snap.Cards {
		marker := ""
		if i == 0 {
			marker = ">"
		}
		tw.AppendRow(table.Row{marker, c.Kind, cardDetails(c)})
	}
	tw.Render()
}

func cardDetails(c deck.CardView) string {
	switch c.Kind {
	case deck.KindEvent:
		return c.Event.Title + " (" + c.Event.Type + ", " + c.Event.StartTime.Local().Format(timeLayout) + ")"
	case deck.KindLoading:
		return "Thinking of an excuse..."
	default:
		return c.DecisionLabel + ": " + c.Comment + "\n" + text.WrapSoft(c.Excuse, 60)
	}
}
