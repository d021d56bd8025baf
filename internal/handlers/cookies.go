package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/excuse-deck/internal/calendar"
	"golang.org/x/oauth2"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	oauthStateCookie   = "oauth_state"

	accessTokenMaxAge  = 3600
	refreshTokenMaxAge = 30 * 24 * 3600
	oauthStateMaxAge   = 600
)

// tokenCookies moves calendar provider tokens between cookies and request contexts
type tokenCookies struct {
	secure bool
}

func (c tokenCookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// tokenFromRequest rebuilds the provider token from cookies, or nil when neither cookie is set
func tokenFromRequest(r *http.Request) *oauth2.Token {
	var tok oauth2.Token
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		tok.AccessToken = c.Value
		tok.TokenType = "Bearer"
		// the browser drops the cookie once the access token expires
		tok.Expiry = time.Now().Add(time.Duration(accessTokenMaxAge) * time.Second)
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		tok.RefreshToken = c.Value
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil
	}
	return &tok
}

// context attaches the request's provider token to ctx
func (c tokenCookies) context(ctx context.Context, r *http.Request) (context.Context, *calendar.TokenHolder) {
	holder := calendar.NewTokenHolder(tokenFromRequest(r))
	return calendar.WithToken(ctx, holder), holder
}

// set writes the token cookies. A token without a refresh token keeps the existing one.
func (c tokenCookies) set(w http.ResponseWriter, tok *oauth2.Token) {
	if tok == nil {
		return
	}
	if tok.AccessToken != "" {
		http.SetCookie(w, c.cookie(accessTokenCookie, tok.AccessToken, accessTokenMaxAge))
	}
	if tok.RefreshToken != "" {
		http.SetCookie(w, c.cookie(refreshTokenCookie, tok.RefreshToken, refreshTokenMaxAge))
	}
}

// persist writes back a token the source refreshed during the request
func (c tokenCookies) persist(w http.ResponseWriter, holder *calendar.TokenHolder) {
	if holder != nil && holder.Refreshed() {
		c.set(w, holder.Token())
	}
}

// clear expires the token cookies
func (c tokenCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(accessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(refreshTokenCookie, "", -1))
}
