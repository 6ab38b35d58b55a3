package domain

import "time"

// AdminSession is issued after a successful admin login
type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminClaims represents the JWT token payload
type AdminClaims struct {
	Subject   string    `json:"sub"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// IsExpired checks if the claims have expired
func (c *AdminClaims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Password string `json:"password"`
}
