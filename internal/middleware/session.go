package middleware

import (
	"net/http"

	"github.com/benvon/excuse-deck/internal/request"
	"github.com/benvon/excuse-deck/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sessions attaches the deck session id to the request context. A missing or
// invalid deck_session cookie starts a new session and sets a fresh cookie.
func Sessions(signer *session.Signer, secure bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(session.CookieName); err == nil {
				if parsed, err := signer.Parse(c.Value); err == nil {
					id = parsed
				} else {
					logger.Debug("session_cookie_rejected", zap.Error(err))
				}
			}

			if id == "" {
				id = uuid.NewString()
				token, err := signer.Issue(id)
				if err != nil {
					logger.Error("session_issue_failed", zap.Error(err))
					respondErrorJSON(w, r, http.StatusInternalServerError, "session_error", "Failed to start a session", logger)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     session.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(signer.TTL().Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(request.WithSessionID(r.Context(), id)))
		})
	}
}
