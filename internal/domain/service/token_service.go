package service

import (
	"hrdesk/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the custom claims carried by access tokens.
type Claims struct {
	AccountID uint64      `json:"id"`
	Role      entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for issuing and validating signed access tokens.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// IssueAccessToken signs a short-lived token encoding the account id and role.
	IssueAccessToken(account *entity.Account) (string, error)

	// ValidateAccessToken checks signature and expiry and returns the decoded claims.
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// TokenGenerator produces opaque random tokens (refresh, verification, reset).
type TokenGenerator interface {
	// Generate returns a hex-encoded value carrying at least 40 random bytes.
	Generate() (string, error)

	// Hash returns the digest under which an opaque token is stored.
	Hash(token string) string
}
