package driven

import (
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// AuthAdapter handles admin authentication cryptographic operations.
type AuthAdapter interface {
	// Password operations
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	// Token operations
	GenerateToken(subject string, ttl time.Duration) (*domain.AdminSession, error)
	ParseToken(token string) (*domain.AdminClaims, error)
}
