// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/repository"
	"hrdesk/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// registrationLockKey is the advisory lock id serialising account registration.
const registrationLockKey int64 = 0x68726465736b

// accountRepository implements the domain.AccountRepository interface.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts the account and copies the generated id back.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Omit("RefreshTokens").Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateEmail
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required account information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create account")
	}

	account.ID = accountM.ID

	return nil
}

// Update writes every column except the id and creation time.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{ID: account.ID}).
		Select("*").
		Omit("id", "created", "RefreshTokens").
		Updates(accountM)
	if err := result.Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateEmail
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update account")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

// Delete removes the account; refresh tokens go with it through the foreign key cascade.
func (repo *accountRepository) Delete(ctx context.Context, id uint64) error {
	result := repo.db.WithContext(ctx).Delete(&model.AccountModel{}, id)
	if err := result.Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete account")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

func (repo *accountRepository) FindByID(ctx context.Context, id uint64) (*entity.Account, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.findOne(ctx, "email = ?", email)
}

func (repo *accountRepository) FindByVerificationToken(ctx context.Context, tokenHash string) (*entity.Account, error) {
	return repo.findOne(ctx, "verification_token = ?", tokenHash)
}

func (repo *accountRepository) FindByResetToken(ctx context.Context, tokenHash string) (*entity.Account, error) {
	return repo.findOne(ctx, "reset_token = ?", tokenHash)
}

// FindAll lists accounts ordered by id.
func (repo *accountRepository) FindAll(ctx context.Context) ([]*entity.Account, error) {
	var accountModels []*model.AccountModel
	if err := repo.db.WithContext(ctx).Order("id").Find(&accountModels).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	accounts := make([]*entity.Account, 0, len(accountModels))
	for _, accountM := range accountModels {
		accounts = append(accounts, toAccountDomain(accountM))
	}

	return accounts, nil
}

func (repo *accountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.AccountModel{}).Count(&count).Error; err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

// LockRegistration takes a transaction-scoped advisory lock. Outside a transaction
// the lock would be released as soon as the statement returns.
func (repo *accountRepository) LockRegistration(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", registrationLockKey).Error; err != nil {
		return errors.Wrap(err, "failed to acquire registration lock")
	}

	return nil
}

func (repo *accountRepository) findOne(ctx context.Context, query string, arg any) (*entity.Account, error) {
	var accountM model.AccountModel
	if err := repo.db.WithContext(ctx).Where(query, arg).First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toAccountDomain(&accountM), nil
}

// --- Mapper functions ---

func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	return &entity.Account{
		ID:                data.ID,
		Title:             data.Title,
		FirstName:         data.FirstName,
		LastName:          data.LastName,
		Email:             data.Email,
		PasswordHash:      data.PasswordHash,
		Role:              entity.Role(data.Role),
		IsVerified:        data.IsVerified,
		IsActive:          data.IsActive,
		VerificationToken: data.VerificationToken,
		ResetToken:        data.ResetToken,
		ResetTokenExpires: data.ResetTokenExpires,
		Created:           data.Created,
		Updated:           data.Updated,
		Verified:          data.Verified,
		PasswordReset:     data.PasswordReset,
	}
}

func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	return &model.AccountModel{
		ID:                data.ID,
		Title:             data.Title,
		FirstName:         data.FirstName,
		LastName:          data.LastName,
		Email:             data.Email,
		PasswordHash:      data.PasswordHash,
		Role:              data.Role.String(),
		IsVerified:        data.IsVerified,
		IsActive:          data.IsActive,
		VerificationToken: data.VerificationToken,
		ResetToken:        data.ResetToken,
		ResetTokenExpires: data.ResetTokenExpires,
		Created:           data.Created,
		Updated:           data.Updated,
		Verified:          data.Verified,
		PasswordReset:     data.PasswordReset,
	}
}
