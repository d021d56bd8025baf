package deck

import "errors"

var (
	// ErrNotFront is returned when the target card is not at index 0
	ErrNotFront = errors.New("deck: card is not at the front")
	// ErrMissingPlaceholder is returned when an event card has no loading card behind it
	ErrMissingPlaceholder = errors.New("deck: event card has no paired loading card")
	// ErrNotDismissible is returned when the front card is not a loading or result card
	ErrNotDismissible = errors.New("deck: front card cannot be dismissed")
	// ErrNoConfirmation is returned by Confirm when no confirmation is open
	ErrNoConfirmation = errors.New("deck: no confirmation open")
	// ErrConfirmationOpen is returned for swipes while a confirmation is open
	ErrConfirmationOpen = errors.New("deck: confirmation open")
	// ErrDeckNotEmpty is returned by Reset while cards remain
	ErrDeckNotEmpty = errors.New("deck: deck is not empty")
	// ErrInvalidDirection is returned for an unknown swipe direction
	ErrInvalidDirection = errors.New("deck: invalid direction")
	// ErrInvalidAction is returned for an unknown confirmation action
	ErrInvalidAction = errors.New("deck: invalid confirmation action")
	// ErrEmptyDeck is returned for gestures on an empty deck
	ErrEmptyDeck = errors.New("deck: deck is empty")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("deck: machine closed")
)
