package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/benvon/excuse-deck/internal/deck"
	"github.com/benvon/excuse-deck/internal/gesture"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/request"
	"github.com/benvon/excuse-deck/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxVisibleCards = 50

// DeckHandler exposes the per-session swipe deck
type DeckHandler struct {
	sessions *session.Manager
	cookies  tokenCookies
	logger   *zap.Logger
}

// NewDeckHandler creates a deck handler
func NewDeckHandler(sessions *session.Manager, secureCookies bool, logger *zap.Logger) *DeckHandler {
	return &DeckHandler{
		sessions: sessions,
		cookies:  tokenCookies{secure: secureCookies},
		logger:   logger,
	}
}

// DeckResponse is returned by every deck route
type DeckResponse struct {
	Deck     deck.Snapshot         `json:"deck"`
	Loaded   *bool                 `json:"loaded,omitempty"`
	Decision *models.EventDecision `json:"decision,omitempty"`
	Drag     *deck.DragResult      `json:"drag,omitempty"`
}

type swipeRequest struct {
	EventID   string `json:"event_id" validate:"required,max=1024"`
	Direction string `json:"direction" validate:"required,direction"`
	Wait      bool   `json:"wait"`
}

type confirmRequest struct {
	Action string `json:"action" validate:"required,confirm_action"`
	Wait   bool   `json:"wait"`
}

type dismissRequest struct {
	CardID string `json:"card_id" validate:"omitempty,uuid"`
}

type dragRequest struct {
	Frames   []gesture.Frame `json:"frames" validate:"max=512"`
	Released bool            `json:"released"`
	Wait     bool            `json:"wait"`
}

// RegisterRoutes registers the deck routes
func (h *DeckHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/deck", h.Get).Methods("GET")
	r.HandleFunc("/deck/load", h.Load).Methods("POST")
	r.HandleFunc("/deck/swipe", h.Swipe).Methods("POST")
	r.HandleFunc("/deck/confirm", h.Confirm).Methods("POST")
	r.HandleFunc("/deck/dismiss", h.Dismiss).Methods("POST")
	r.HandleFunc("/deck/drag", h.Drag).Methods("POST")
	r.HandleFunc("/deck/reset", h.Reset).Methods("POST")
}

// Get returns the deck snapshot. ?limit caps the number of cards (default 3).
func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, DeckResponse{Deck: s.Machine.Snapshot(visibleLimit(r))})
}

// Load fills an empty deck from the calendar
func (h *DeckHandler) Load(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, holder := h.cookies.context(r.Context(), r)
	loaded, err := s.Machine.Load(ctx)
	if err != nil {
		h.respondLoadError(w, err)
		return
	}
	h.cookies.persist(w, holder)

	respondJSON(w, http.StatusOK, DeckResponse{
		Deck:   s.Machine.Snapshot(visibleLimit(r)),
		Loaded: &loaded,
	})
}

// Reset leaves the finished state and reloads
func (h *DeckHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, holder := h.cookies.context(r.Context(), r)
	loaded, err := s.Machine.Reset(ctx)
	if err != nil {
		h.respondLoadError(w, err)
		return
	}
	h.cookies.persist(w, holder)

	respondJSON(w, http.StatusOK, DeckResponse{
		Deck:   s.Machine.Snapshot(visibleLimit(r)),
		Loaded: &loaded,
	})
}

// Swipe applies an already classified swipe to the front event card
func (h *DeckHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req swipeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.Machine.CommitSwipe(req.EventID, models.Direction(req.Direction))
	if err != nil {
		h.respondDeckError(w, err)
		return
	}
	h.respondResolution(w, r, s, res, req.Wait)
}

// Confirm answers the right-swipe confirmation
func (h *DeckHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.Machine.Confirm(req.Action)
	if err != nil {
		h.respondDeckError(w, err)
		return
	}
	h.respondResolution(w, r, s, res, req.Wait)
}

// Dismiss removes the loading or result card at the front
func (h *DeckHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dismissRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cardID := uuid.Nil
	if req.CardID != "" {
		cardID = uuid.MustParse(req.CardID)
	}
	if err := s.Machine.DismissFront(cardID); err != nil {
		h.respondDeckError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DeckResponse{Deck: s.Machine.Snapshot(visibleLimit(r))})
}

// Drag feeds raw pointer frames to the gesture controller of the session
func (h *DeckHandler) Drag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dragRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.Controller.Drag(r.Context(), req.Frames, req.Released)
	if err != nil {
		h.respondDeckError(w, err)
		return
	}

	resp := DeckResponse{Drag: &result}
	if req.Wait && result.Resolution != nil {
		d, err := result.Resolution.Wait(r.Context())
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("deck_decision_not_persisted", zap.Error(err))
		}
		if err == nil {
			resp.Decision = &d
		}
	}
	resp.Deck = s.Machine.Snapshot(visibleLimit(r))
	respondJSON(w, http.StatusOK, resp)
}

func (h *DeckHandler) respondResolution(w http.ResponseWriter, r *http.Request, s *session.Session, res *deck.Resolution, wait bool) {
	resp := DeckResponse{}
	if res != nil {
		if wait {
			d, err := res.Wait(r.Context())
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					respondJSONError(w, http.StatusGatewayTimeout, "timeout", "Timed out waiting for the excuse")
					return
				}
				// the card was placed; only the log append failed
				h.logger.Warn("deck_decision_not_persisted", zap.Error(err))
			}
			resp.Decision = &d
		} else {
			d := res.Decision()
			resp.Decision = &d
		}
	}
	resp.Deck = s.Machine.Snapshot(visibleLimit(r))
	respondJSON(w, http.StatusOK, resp)
}

func (h *DeckHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := request.SessionID(r)
	if id == "" {
		respondJSONError(w, http.StatusUnauthorized, "session_required", "A deck session is required")
		return nil, false
	}
	return h.sessions.Get(id), true
}

func (h *DeckHandler) respondLoadError(w http.ResponseWriter, err error) {
	if status, errorType, ok := deckErrorStatus(err); ok {
		respondJSONError(w, status, errorType, err.Error())
		return
	}
	h.logger.Error("deck_load_failed", zap.Error(err))
	respondRetryableError(w, http.StatusBadGateway, "event_fetch_failed", "Failed to fetch events")
}

func (h *DeckHandler) respondDeckError(w http.ResponseWriter, err error) {
	if status, errorType, ok := deckErrorStatus(err); ok {
		respondJSONError(w, status, errorType, err.Error())
		return
	}
	h.logger.Error("deck_operation_failed", zap.Error(err))
	respondJSONError(w, http.StatusInternalServerError, "internal_error", "Deck operation failed")
}

// deckErrorStatus maps known deck and calendar errors to a status and error type
func deckErrorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, calendar.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated", true
	case errors.Is(err, deck.ErrNotFront),
		errors.Is(err, deck.ErrConfirmationOpen),
		errors.Is(err, deck.ErrNoConfirmation),
		errors.Is(err, deck.ErrNotDismissible),
		errors.Is(err, deck.ErrDeckNotEmpty),
		errors.Is(err, deck.ErrEmptyDeck):
		return http.StatusConflict, "deck_conflict", true
	case errors.Is(err, deck.ErrMissingPlaceholder):
		return http.StatusConflict, "deck_invariant_violation", true
	case errors.Is(err, deck.ErrInvalidDirection), errors.Is(err, deck.ErrInvalidAction):
		return http.StatusBadRequest, "invalid_request", true
	case errors.Is(err, deck.ErrClosed):
		return http.StatusGone, "session_expired", true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", true
	default:
		return 0, "", false
	}
}

func visibleLimit(r *http.Request) int {
	limit := deck.DefaultVisibleCards
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxVisibleCards {
		limit = maxVisibleCards
	}
	return limit
}
