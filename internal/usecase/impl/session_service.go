package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/repository"
	"hrdesk/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager        repository.TransactionManager
	accountRepo      repository.AccountRepository
	refreshTokenRepo repository.RefreshTokenRepository
	logger           *slog.Logger
	now              func() time.Time
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	AccountRepo      repository.AccountRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Logger           *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		txManager:        params.TxManager,
		accountRepo:      params.AccountRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		logger:           params.Logger,
		now:              time.Now,
	}
}

func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *sessionService) ListRefreshTokens(ctx context.Context, requester *entity.Principal, accountID uint64) ([]*entity.RefreshToken, error) {
	if err := requireAccess(requester, accountID); err != nil {
		return nil, err
	}

	if _, err := srv.accountRepo.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrAccountNotFound.WrapMessage("refresh token listing")
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	tokens, err := srv.refreshTokenRepo.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list refresh tokens")
	}

	return tokens, nil
}

// RevokeAllSessions signs the account out everywhere.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, requester *entity.Principal, accountID uint64, ipAddress string) (int64, error) {
	if err := requireAccess(requester, accountID); err != nil {
		return 0, err
	}

	var revoked int64
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := repoFactory.NewAccountRepository().FindByID(ctx, accountID); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return domainerrors.ErrAccountNotFound.WrapMessage("session revocation")
			}

			return errors.Wrap(err, "failed to find account")
		}

		count, err := repoFactory.NewRefreshTokenRepository().RevokeAllForAccount(ctx, accountID, entity.TokenRevocation{
			At:   srv.now(),
			ByIP: ipAddress,
		})
		if err != nil {
			return errors.Wrap(err, "failed to revoke refresh tokens")
		}
		revoked = count

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to revoke sessions")
	}

	srv.log(ctx).Info("All sessions revoked",
		slog.Uint64("accountID", accountID),
		slog.Uint64("principalID", requester.ID),
		slog.Int64("revoked", revoked),
	)

	return revoked, nil
}
