package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CalendarHandler handles the provider OAuth flow and raw event listing
type CalendarHandler struct {
	oauth       *calendar.OAuth
	source      calendar.Source
	cookies     tokenCookies
	frontendURL string
	logger      *zap.Logger
}

// NewCalendarHandler creates a calendar handler. oauth may be nil when the
// configured source needs no authorization.
func NewCalendarHandler(oauth *calendar.OAuth, source calendar.Source, frontendURL string, secureCookies bool, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{
		oauth:       oauth,
		source:      source,
		cookies:     tokenCookies{secure: secureCookies},
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// RegisterRoutes registers the /api/v1 calendar routes
func (h *CalendarHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/calendar/auth-url", h.AuthURL).Methods("GET")
	r.HandleFunc("/calendar/events", h.Events).Methods("GET")
	r.HandleFunc("/calendar/logout", h.Logout).Methods("POST")
}

// RegisterCallback registers the provider redirect target on the root router
func (h *CalendarHandler) RegisterCallback(r *mux.Router) {
	r.HandleFunc("/api/auth/callback/google", h.Callback).Methods("GET")
}

// AuthURL returns the consent URL and remembers the state in a short-lived cookie
func (h *CalendarHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil || !h.oauth.Configured() {
		respondJSONError(w, http.StatusServiceUnavailable, "calendar_not_configured", "Calendar authorization is not configured")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, h.cookies.cookie(oauthStateCookie, state, oauthStateMaxAge))
	respondJSON(w, http.StatusOK, map[string]string{"url": h.oauth.AuthCodeURL(state)})
}

// Callback exchanges the authorization code, stores the tokens as cookies and
// redirects back to the frontend with ?calendar=connected or ?calendar=error
func (h *CalendarHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	http.SetCookie(w, h.cookies.cookie(oauthStateCookie, "", -1))

	if h.oauth == nil || !h.oauth.Configured() {
		h.redirect(w, r, "error")
		return
	}
	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.Warn("calendar_oauth_denied", zap.String("error", providerErr))
		h.redirect(w, r, "error")
		return
	}
	if c, err := r.Cookie(oauthStateCookie); err == nil && c.Value != q.Get("state") {
		h.logger.Warn("calendar_oauth_state_mismatch")
		h.redirect(w, r, "error")
		return
	}

	tok, err := h.oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Warn("calendar_oauth_exchange_failed", zap.Error(err))
		h.redirect(w, r, "error")
		return
	}

	h.cookies.set(w, tok)
	h.logger.Info("calendar_connected", zap.Bool("has_refresh_token", tok.RefreshToken != ""))
	h.redirect(w, r, "connected")
}

// Logout forgets the provider tokens
func (h *CalendarHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)
	respondJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}

// Events lists upcoming events without touching the deck
func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx, holder := h.cookies.context(r.Context(), r)

	events, err := h.source.Events(ctx)
	if err != nil {
		if errors.Is(err, calendar.ErrNotAuthenticated) {
			respondJSONError(w, http.StatusUnauthorized, "not_authenticated", "Not authenticated")
			return
		}
		h.logger.Error("calendar_events_failed", zap.Error(err))
		respondRetryableError(w, http.StatusBadGateway, "event_fetch_failed", "Failed to fetch events")
		return
	}

	h.cookies.persist(w, holder)
	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (h *CalendarHandler) redirect(w http.ResponseWriter, r *http.Request, status string) {
	target := h.frontendURL + "/?calendar=" + url.QueryEscape(status)
	http.Redirect(w, r, target, http.StatusFound)
}
