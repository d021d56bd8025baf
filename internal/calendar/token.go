package calendar

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

type tokenKey struct{}

// TokenHolder carries the caller's provider token through a request. A source
// that refreshes the access token stores the new one back so the caller can
// persist it.
type TokenHolder struct {
	mu        sync.Mutex
	token     *oauth2.Token
	refreshed bool
}

// NewTokenHolder wraps tok
func NewTokenHolder(tok *oauth2.Token) *TokenHolder {
	return &TokenHolder{token: tok}
}

// Token returns the current token
func (h *TokenHolder) Token() *oauth2.Token {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

// Update replaces the token if its access token changed
func (h *TokenHolder) Update(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.token != nil && h.token.AccessToken == tok.AccessToken {
		return
	}
	if tok.RefreshToken == "" && h.token != nil {
		tok.RefreshToken = h.token.RefreshToken
	}
	h.token = tok
	h.refreshed = true
}

// Refreshed reports whether Update stored a new access token
func (h *TokenHolder) Refreshed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshed
}

// WithToken returns a context carrying h
func WithToken(ctx context.Context, h *TokenHolder) context.Context {
	return context.WithValue(ctx, tokenKey{}, h)
}

// TokenFromContext returns the holder stored by WithToken, or nil
func TokenFromContext(ctx context.Context) *TokenHolder {
	h, _ := ctx.Value(tokenKey{}).(*TokenHolder)
	return h
}
