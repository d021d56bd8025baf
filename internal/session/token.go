package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// CookieName is the cookie carrying the signed session token
const CookieName = "deck_session"

const issuer = "excuse-deck"

// ErrInvalidToken is returned for tokens that fail signature, issuer or expiry checks
var ErrInvalidToken = errors.New("session: invalid token")

// Signer issues and verifies HS256 session tokens whose subject is the session id
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner creates a signer. secret should be at least 32 bytes.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	return &Signer{key: secret, ttl: ttl, now: time.Now}
}

// TTL returns the token lifetime
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for session id
func (s *Signer) Issue(id string) (string, error) {
	now := s.now()
	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(id).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return string(signed), nil
}

// Parse verifies a token and returns its session id
func (s *Signer) Parse(raw string) (string, error) {
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(issuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := token.Subject()
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: subject is not a session id", ErrInvalidToken)
	}
	return id, nil
}
