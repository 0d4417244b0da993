// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"hrdesk/internal/domain/entity"
)

// --- Input DTOs ---

// AuthenticateInput defines the credentials presented at sign-in.
type AuthenticateInput struct {
	Email     string
	Password  string
	IPAddress string
	// Origin is the client origin used for links in a re-sent verification email.
	Origin string
}

// --- Output DTOs ---

// AuthOutput carries a fresh access/refresh pair for an account.
// RefreshToken is the raw opaque value; only its hash is persisted.
type AuthOutput struct {
	Account             *entity.Account
	AccessToken         string
	RefreshToken        string
	RefreshTokenExpires time.Time
}

// AuthUsecase covers sign-in, refresh token rotation and revocation.
type AuthUsecase interface {
	// Authenticate checks, in order: account exists, is active, is verified, password matches.
	Authenticate(ctx context.Context, input *AuthenticateInput) (*AuthOutput, error)

	// RefreshToken rotates a usable refresh token; exactly one concurrent caller wins.
	RefreshToken(ctx context.Context, token, ipAddress string) (*AuthOutput, error)

	// RevokeToken revokes a usable refresh token owned by the requester, or any token for an Admin.
	RevokeToken(ctx context.Context, token, ipAddress string, requester *entity.Principal) error

	// ResolvePrincipal re-reads the account behind an access token.
	ResolvePrincipal(ctx context.Context, accountID uint64) (*entity.Principal, error)
}
