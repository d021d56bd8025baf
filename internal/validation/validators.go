package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

// Confirmation modal actions accepted by the deck API
const (
	ConfirmContinue = "continue"
	ConfirmCancel   = "cancel"
	ConfirmDismiss  = "dismiss"
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("decision", validateDecision); err != nil {
		panic(fmt.Sprintf("failed to register decision validator: %v", err))
	}
	if err := Validate.RegisterValidation("direction", validateDirection); err != nil {
		panic(fmt.Sprintf("failed to register direction validator: %v", err))
	}
	if err := Validate.RegisterValidation("confirm_action", validateConfirmAction); err != nil {
		panic(fmt.Sprintf("failed to register confirm_action validator: %v", err))
	}
}

func validateDecision(fl validator.FieldLevel) bool {
	return models.Decision(fl.Field().String()).Valid()
}

func validateDirection(fl validator.FieldLevel) bool {
	return models.Direction(fl.Field().String()).Valid()
}

func validateConfirmAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ConfirmContinue, ConfirmCancel, ConfirmDismiss:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateEvent checks a normalized calendar event: required fields and end after start
func ValidateEvent(event models.CalendarEvent) error {
	if err := Validate.Struct(event); err != nil {
		return fmt.Errorf("invalid event %q: %w", event.ID, err)
	}
	return nil
}

// ValidateDirection validates a swipe direction string value
func ValidateDirection(value string) error {
	if !models.Direction(value).Valid() {
		return fmt.Errorf("invalid direction: %s (must be 'left', 'right', or 'up')", value)
	}
	return nil
}

// ValidateDecision validates a decision string value
func ValidateDecision(value string) error {
	if !models.Decision(value).Valid() {
		return fmt.Errorf("invalid decision: %s (must be 'declined', 'maybe', or 'maybe-declined')", value)
	}
	return nil
}
