package repository

import (
	"context"
	"time"

	"hrdesk/internal/domain/entity"

	"github.com/pkg/errors"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when no usable refresh token matches.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// RefreshTokenRepository defines the ledger of issued refresh tokens.
// Tokens are addressed by the SHA-256 hash of their opaque value.
type RefreshTokenRepository interface {
	// Create persists a newly issued token.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// FindActiveByHash returns the token only if it is active, unrevoked and unexpired at now.
	FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*entity.RefreshToken, error)

	// FindByAccountID returns the whole rotation history of an account, newest first.
	FindByAccountID(ctx context.Context, accountID uint64) ([]*entity.RefreshToken, error)

	// ExistsActiveForAccount reports whether the hash is a usable token of the account.
	ExistsActiveForAccount(ctx context.Context, accountID uint64, tokenHash string, now time.Time) (bool, error)

	// Revoke marks the token revoked and inactive only if it is still usable.
	// It returns ErrRefreshTokenNotFound when no row was changed, which is how a
	// losing concurrent rotation observes the winner.
	Revoke(ctx context.Context, tokenHash string, revocation entity.TokenRevocation) error

	// RevokeAllForAccount revokes every usable token of the account and returns how many changed.
	RevokeAllForAccount(ctx context.Context, accountID uint64, revocation entity.TokenRevocation) (int64, error)
}
