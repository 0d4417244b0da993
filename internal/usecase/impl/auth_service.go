// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"hrdesk/config"
	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/repository"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const fallbackRefreshTokenTTL = 7 * 24 * time.Hour

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	accountRepo      repository.AccountRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	tokenGen         service.TokenGenerator
	mails            *mailDispatcher
	refreshTokenTTL  time.Duration
	logger           *slog.Logger
	now              func() time.Time
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	AccountRepo      repository.AccountRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	TokenGenerator   service.TokenGenerator
	Mailer           service.Mailer
	Composer         service.MailComposer
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	refreshTokenTTL := fallbackRefreshTokenTTL
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.RefreshTokenTTL > 0 {
		refreshTokenTTL = params.Config.Auth.RefreshTokenTTL
	}

	return &authService{
		txManager:        params.TxManager,
		accountRepo:      params.AccountRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		tokenGen:         params.TokenGenerator,
		mails:            newMailDispatcher(params.Mailer, params.Composer, params.Logger),
		refreshTokenTTL:  refreshTokenTTL,
		logger:           params.Logger,
		now:              time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Authenticate verifies credentials and issues a new token pair.
func (srv *authService) Authenticate(ctx context.Context, input *usecase.AuthenticateInput) (*usecase.AuthOutput, error) {
	account, err := srv.accountRepo.FindByEmail(ctx, input.Email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		srv.log(ctx).Info("Authentication for unknown email", slog.String("ip", input.IPAddress))

		return nil, domainerrors.ErrAccountNotFound.WrapMessage("no account for email")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account by email")
	}

	if !account.IsActive {
		srv.log(ctx).Warn("Authentication for inactive account", slog.Uint64("accountID", account.ID))

		return nil, domainerrors.ErrAccountInactive.WrapMessage("account is deactivated")
	}

	if !account.IsVerified {
		srv.resendVerification(ctx, account, input.Origin)

		return nil, domainerrors.ErrEmailNotVerified.WrapMessage("account email not verified")
	}

	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Password mismatch", slog.Uint64("accountID", account.ID), slog.String("ip", input.IPAddress))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("password mismatch")
	}

	accessToken, err := srv.tokenService.IssueAccessToken(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	rawToken, refreshToken, err := srv.newRefreshToken(account.ID, input.IPAddress)
	if err != nil {
		return nil, err
	}

	if err := srv.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, errors.Wrap(err, "failed to persist refresh token")
	}

	srv.log(ctx).Info("Account authenticated", slog.Uint64("accountID", account.ID))

	return &usecase.AuthOutput{
		Account:             account,
		AccessToken:         accessToken,
		RefreshToken:        rawToken,
		RefreshTokenExpires: refreshToken.Expires,
	}, nil
}

// resendVerification mails a fresh verification link. Only the digest is stored,
// so every resend replaces the previous token. Failures are logged and never
// surface to the caller.
func (srv *authService) resendVerification(ctx context.Context, account *entity.Account, origin string) {
	token, err := srv.tokenGen.Generate()
	if err != nil {
		srv.log(ctx).Error("Failed to generate verification token", slog.Uint64("accountID", account.ID), slog.Any("error", err))

		return
	}

	digest := srv.tokenGen.Hash(token)
	account.VerificationToken = &digest
	account.Touch(srv.now())

	if err := srv.accountRepo.Update(ctx, account); err != nil {
		srv.log(ctx).Error("Failed to persist verification token", slog.Uint64("accountID", account.ID), slog.Any("error", err))

		return
	}

	srv.mails.verification(ctx, account, token, origin)
}

// RefreshToken rotates the presented refresh token.
// The conditional revoke inside the transaction is the serialisation point: when two
// requests race on the same token only one revoke changes a row.
func (srv *authService) RefreshToken(ctx context.Context, token, ipAddress string) (*usecase.AuthOutput, error) {
	if token == "" {
		return nil, domainerrors.ErrInvalidRefreshToken.WrapMessage("refresh token is required")
	}

	tokenHash := srv.tokenGen.Hash(token)
	var output *usecase.AuthOutput

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshTokenRepo := repoFactory.NewRefreshTokenRepository()
		accountRepo := repoFactory.NewAccountRepository()
		now := srv.now()

		current, err := refreshTokenRepo.FindActiveByHash(ctx, tokenHash, now)
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return domainerrors.ErrInvalidRefreshToken.WrapMessage("refresh token is not usable")
		}
		if err != nil {
			return errors.Wrap(err, "failed to find refresh token")
		}

		account, err := accountRepo.FindByID(ctx, current.AccountID)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrInvalidRefreshToken.WrapMessage("refresh token owner no longer exists")
		}
		if err != nil {
			return errors.Wrap(err, "failed to find refresh token owner")
		}
		if !account.IsActive {
			return domainerrors.ErrInvalidRefreshToken.WrapMessage("refresh token owner is inactive")
		}

		rawToken, next, err := srv.newRefreshToken(account.ID, ipAddress)
		if err != nil {
			return err
		}

		err = refreshTokenRepo.Revoke(ctx, tokenHash, entity.TokenRevocation{
			At:              now,
			ByIP:            ipAddress,
			ReplacedByToken: &next.TokenHash,
		})
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return domainerrors.ErrInvalidRefreshToken.WrapMessage("refresh token was rotated concurrently")
		}
		if err != nil {
			return errors.Wrap(err, "failed to revoke refresh token")
		}

		if err := refreshTokenRepo.Create(ctx, next); err != nil {
			return errors.Wrap(err, "failed to persist rotated refresh token")
		}

		accessToken, err := srv.tokenService.IssueAccessToken(account)
		if err != nil {
			return errors.Wrap(err, "failed to issue access token")
		}

		output = &usecase.AuthOutput{
			Account:             account,
			AccessToken:         accessToken,
			RefreshToken:        rawToken,
			RefreshTokenExpires: next.Expires,
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh token rotation failed", slog.String("ip", ipAddress), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to rotate refresh token")
	}

	srv.log(ctx).Debug("Refresh token rotated", slog.Uint64("accountID", output.Account.ID))

	return output, nil
}

// RevokeToken revokes a usable refresh token on behalf of the requester.
func (srv *authService) RevokeToken(ctx context.Context, token, ipAddress string, requester *entity.Principal) error {
	if token == "" {
		return domainerrors.ErrValidationFailed.WrapMessage("token is required")
	}
	if requester == nil {
		return domainerrors.ErrUnauthorized.WrapMessage("missing principal")
	}

	tokenHash := srv.tokenGen.Hash(token)
	now := srv.now()

	current, err := srv.refreshTokenRepo.FindActiveByHash(ctx, tokenHash, now)
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return domainerrors.ErrTokenNotFound.WrapMessage("refresh token is not usable")
	}
	if err != nil {
		return errors.Wrap(err, "failed to find refresh token")
	}

	if !requester.IsAdmin() {
		owns, err := srv.ownsToken(ctx, requester, current, token)
		if err != nil {
			return errors.Wrap(err, "failed to check token ownership")
		}
		if !owns {
			srv.log(ctx).Warn("Revoke of foreign refresh token", slog.Uint64("principalID", requester.ID))

			return domainerrors.ErrForbidden.WrapMessage("token belongs to another account")
		}
	}

	err = srv.refreshTokenRepo.Revoke(ctx, tokenHash, entity.TokenRevocation{At: now, ByIP: ipAddress})
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return domainerrors.ErrTokenNotFound.WrapMessage("refresh token was revoked concurrently")
	}
	if err != nil {
		return errors.Wrap(err, "failed to revoke refresh token")
	}

	srv.log(ctx).Info("Refresh token revoked", slog.Uint64("accountID", current.AccountID), slog.Uint64("principalID", requester.ID))

	return nil
}

func (srv *authService) ownsToken(ctx context.Context, requester *entity.Principal, current *entity.RefreshToken, token string) (bool, error) {
	if requester.OwnsToken == nil {
		return current.AccountID == requester.ID, nil
	}

	return requester.OwnsToken(ctx, token)
}

// ResolvePrincipal loads the current state of the account named by an access token.
// Role and activity come from the store, never from the token claims.
func (srv *authService) ResolvePrincipal(ctx context.Context, accountID uint64) (*entity.Principal, error) {
	account, err := srv.accountRepo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("account no longer exists")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve principal")
	}
	if !account.IsActive {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("account is inactive")
	}

	id := account.ID

	return &entity.Principal{
		ID:   id,
		Role: account.Role,
		OwnsToken: func(ctx context.Context, token string) (bool, error) {
			if token == "" {
				return false, nil
			}

			return srv.refreshTokenRepo.ExistsActiveForAccount(ctx, id, srv.tokenGen.Hash(token), srv.now())
		},
	}, nil
}

func (srv *authService) newRefreshToken(accountID uint64, ipAddress string) (string, *entity.RefreshToken, error) {
	rawToken, err := srv.tokenGen.Generate()
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to generate refresh token")
	}

	now := srv.now()

	return rawToken, &entity.RefreshToken{
		AccountID:   accountID,
		TokenHash:   srv.tokenGen.Hash(rawToken),
		Expires:     now.Add(srv.refreshTokenTTL),
		Created:     now,
		CreatedByIP: ipAddress,
		IsActive:    true,
	}, nil
}
