package domain

import "time"

// DefaultTokenBuffer is subtracted from the server-declared lifetime so
// tokens are refreshed before the remote side starts rejecting them.
const DefaultTokenBuffer = 300 * time.Second

// DefaultTokenLifetime applies when the token response omits expires_in.
const DefaultTokenLifetime = 3600 * time.Second

// Token is a bearer token issued by the auth service.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewToken computes the effective expiry for a freshly issued token.
// The expiry never lands before now: a lifetime at or under buffer yields
// a token that is already stale.
func NewToken(value string, expiresIn, buffer time.Duration, now time.Time) Token {
	expiresAt := now.Add(expiresIn - buffer)
	if expiresAt.Before(now) {
		expiresAt = now
	}
	return Token{Value: value, ExpiresAt: expiresAt, CreatedAt: now}
}

// ValidAt reports whether the token may still be used at t.
func (t Token) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// RemainingAt returns the time left before expiry, never negative.
func (t Token) RemainingAt(now time.Time) time.Duration {
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TokenResponse is the auth service's reply to a client_credentials grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Lifetime returns the declared lifetime, defaulting when absent.
func (r TokenResponse) Lifetime() time.Duration {
	if r.ExpiresIn <= 0 {
		return DefaultTokenLifetime
	}
	return time.Duration(r.ExpiresIn) * time.Second
}
