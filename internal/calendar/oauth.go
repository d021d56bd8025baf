package calendar

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// OAuth wraps the Google OAuth2 configuration used for calendar access
type OAuth struct {
	config *oauth2.Config
}

// NewOAuth creates the Google OAuth2 client for read-only calendar access
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{gcal.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}}
}

// NewOAuthWithEndpoint is NewOAuth against a custom token endpoint
func NewOAuthWithEndpoint(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint) *OAuth {
	o := NewOAuth(clientID, clientSecret, redirectURL)
	o.config.Endpoint = endpoint
	return o
}

// Configured reports whether client credentials are present
func (o *OAuth) Configured() bool {
	return o != nil && o.config.ClientID != "" && o.config.ClientSecret != ""
}

// AuthCodeURL returns the consent URL. Offline access with a forced consent
// prompt makes Google return a refresh token every time.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

// TokenSource returns a refreshing token source seeded with tok
func (o *OAuth) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return o.config.TokenSource(ctx, tok)
}
