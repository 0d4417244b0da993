// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"hrdesk/internal/domain/entity"

	"github.com/pkg/errors"
)

// Domain-specific errors for account persistence.
var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when an insert or update collides on email.
	ErrDuplicateEmail = errors.New("email already exists")
)

// AccountRepository defines the persistence operations on accounts.
type AccountRepository interface {
	// Create inserts a new account and fills its generated ID.
	Create(ctx context.Context, account *entity.Account) error

	// Update persists every mutable field of the account.
	Update(ctx context.Context, account *entity.Account) error

	// Delete removes an account; its refresh tokens cascade.
	Delete(ctx context.Context, id uint64) error

	FindByID(ctx context.Context, id uint64) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByVerificationToken(ctx context.Context, tokenHash string) (*entity.Account, error)

	// FindByResetToken matches the pending reset token digest regardless of expiry.
	FindByResetToken(ctx context.Context, tokenHash string) (*entity.Account, error)

	FindAll(ctx context.Context) ([]*entity.Account, error)

	// Count returns the total number of accounts ever stored and not deleted.
	Count(ctx context.Context) (int64, error)

	// LockRegistration serialises registrations until the surrounding transaction ends.
	// It must be called inside TransactionManager.Execute.
	LockRegistration(ctx context.Context) error
}
