package usecase

import (
	"context"

	"hrdesk/internal/domain/entity"
)

// CreateAccountInput defines an account created directly by an Admin.
type CreateAccountInput struct {
	Title     string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      entity.Role
}

// UpdateAccountInput holds optional changes; nil fields are left untouched.
type UpdateAccountInput struct {
	Title     *string
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Role      *entity.Role
	IsActive  *bool
}

// AccountUsecase defines principal-scoped account management.
type AccountUsecase interface {
	ListAccounts(ctx context.Context, requester *entity.Principal) ([]*entity.Account, error)
	GetAccount(ctx context.Context, requester *entity.Principal, id uint64) (*entity.Account, error)
	CreateAccount(ctx context.Context, requester *entity.Principal, input *CreateAccountInput) (*entity.Account, error)
	UpdateAccount(ctx context.Context, requester *entity.Principal, id uint64, input *UpdateAccountInput) (*entity.Account, error)
	DeleteAccount(ctx context.Context, requester *entity.Principal, id uint64) error
}

// SessionUsecase defines the management of an account's refresh tokens.
type SessionUsecase interface {
	// ListRefreshTokens returns the full rotation history of the account.
	ListRefreshTokens(ctx context.Context, requester *entity.Principal, accountID uint64) ([]*entity.RefreshToken, error)

	// RevokeAllSessions revokes every usable refresh token of the account.
	RevokeAllSessions(ctx context.Context, requester *entity.Principal, accountID uint64, ipAddress string) (int64, error)
}
