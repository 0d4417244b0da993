package postgres

import (
	"context"
	"time"

	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/repository"
	"hrdesk/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// usableTokenCondition matches tokens that may still be used for refresh or ownership checks.
const usableTokenCondition = "is_active = TRUE AND revoked IS NULL AND expires > ?"

// refreshTokenRepository implements the domain.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create persists a new refresh token.
func (repo *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := fromRefreshTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrAccountNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	token.ID = tokenM.ID

	return nil
}

// FindActiveByHash retrieves a usable refresh token by its hash.
func (repo *refreshTokenRepository) FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	err := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Where(usableTokenCondition, now).
		First(&tokenM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toRefreshTokenDomain(&tokenM), nil
}

// FindByAccountID retrieves every token ever issued to the account, newest first.
func (repo *refreshTokenRepository) FindByAccountID(ctx context.Context, accountID uint64) ([]*entity.RefreshToken, error) {
	var tokenModels []*model.RefreshTokenModel
	err := repo.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created DESC, id DESC").
		Find(&tokenModels).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	tokens := make([]*entity.RefreshToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toRefreshTokenDomain(tokenM))
	}

	return tokens, nil
}

func (repo *refreshTokenRepository) ExistsActiveForAccount(ctx context.Context, accountID uint64, tokenHash string, now time.Time) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("account_id = ? AND token_hash = ?", accountID, tokenHash).
		Where(usableTokenCondition, now).
		Count(&count).Error
	if err != nil {
		return false, errors.WithStack(err)
	}

	return count > 0, nil
}

// Revoke is a conditional update: concurrent callers racing on the same token
// serialise on the row lock and only the first sees a usable row.
func (repo *refreshTokenRepository) Revoke(ctx context.Context, tokenHash string, revocation entity.TokenRevocation) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("token_hash = ?", tokenHash).
		Where(usableTokenCondition, revocation.At).
		Updates(revocationColumns(revocation))
	if err := result.Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke refresh token")
	}

	if result.RowsAffected == 0 {
		return repository.ErrRefreshTokenNotFound
	}

	return nil
}

func (repo *refreshTokenRepository) RevokeAllForAccount(ctx context.Context, accountID uint64, revocation entity.TokenRevocation) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("account_id = ?", accountID).
		Where(usableTokenCondition, revocation.At).
		Updates(revocationColumns(revocation))
	if err := result.Error; err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to revoke refresh tokens")
	}

	return result.RowsAffected, nil
}

func revocationColumns(revocation entity.TokenRevocation) map[string]any {
	byIP := revocation.ByIP

	return map[string]any{
		"is_active":         false,
		"revoked":           revocation.At,
		"revoked_by_ip":     &byIP,
		"replaced_by_token": revocation.ReplacedByToken,
	}
}

// --- Mapper functions ---

func toRefreshTokenDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	if data == nil {
		return nil
	}

	return &entity.RefreshToken{
		ID:              data.ID,
		AccountID:       data.AccountID,
		TokenHash:       data.TokenHash,
		Expires:         data.Expires,
		Created:         data.Created,
		CreatedByIP:     data.CreatedByIP,
		IsActive:        data.IsActive,
		Revoked:         data.Revoked,
		RevokedByIP:     data.RevokedByIP,
		ReplacedByToken: data.ReplacedByToken,
	}
}

func fromRefreshTokenDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	if data == nil {
		return nil
	}

	return &model.RefreshTokenModel{
		ID:              data.ID,
		AccountID:       data.AccountID,
		TokenHash:       data.TokenHash,
		Expires:         data.Expires,
		Created:         data.Created,
		CreatedByIP:     data.CreatedByIP,
		IsActive:        data.IsActive,
		Revoked:         data.Revoked,
		RevokedByIP:     data.RevokedByIP,
		ReplacedByToken: data.ReplacedByToken,
	}
}
