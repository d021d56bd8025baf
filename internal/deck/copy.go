package deck

import "github.com/benvon/excuse-deck/internal/models"

const (
	// CommentDeclined is recorded for a left swipe
	CommentDeclined = "Swiped left. Not happening."
	// CommentMaybeDeclined is recorded for an up swipe
	CommentMaybeDeclined = "You said maybe, but you probably wanted to decline anyway."
	// CommentMaybe is recorded after the fourth confirmation
	CommentMaybe = "Fine, you might go. We'll call it a maybe."
	// CommentBackedOut is recorded when the confirmation is cancelled
	CommentBackedOut = "Good choice. You backed out just in time."
)

// MaxConfirmAttempts is the number of confirmations needed for a maybe
const MaxConfirmAttempts = 4

var confirmMessages = map[int]string{
	1: "Are you sure you want to go? It's not too late to back out.",
	2: "Really? You could be doing literally anything else right now.",
	3: "Think of your couch. Your couch is already missing you.",
	4: "Final answer? Once you commit there's no excuse to hide behind.",
}

const confirmFallback = "Are you absolutely sure about this?"

// ConfirmMessage returns the prompt shown for attempt n
func ConfirmMessage(attempt int) string {
	if msg, ok := confirmMessages[attempt]; ok {
		return msg
	}
	return confirmFallback
}

func commentFor(d models.Decision) string {
	switch d {
	case models.DecisionDeclined:
		return CommentDeclined
	case models.DecisionMaybeDeclined:
		return CommentMaybeDeclined
	case models.DecisionMaybe:
		return CommentMaybe
	default:
		return ""
	}
}
