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

const fallbackResetTokenTTL = 24 * time.Hour

// passwordService implements the PasswordUsecase interface.
type passwordService struct {
	txManager     repository.TransactionManager
	accountRepo   repository.AccountRepository
	hasher        service.PasswordHasher
	tokenGen      service.TokenGenerator
	mails         *mailDispatcher
	resetTokenTTL time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// PasswordServiceParams holds dependencies for PasswordService, injected by Fx.
type PasswordServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	AccountRepo    repository.AccountRepository
	Hasher         service.PasswordHasher
	TokenGenerator service.TokenGenerator
	Mailer         service.Mailer
	Composer       service.MailComposer
	Config         *config.Config
	Logger         *slog.Logger
}

// NewPasswordService is the constructor for passwordService.
func NewPasswordService(params PasswordServiceParams) usecase.PasswordUsecase {
	resetTokenTTL := fallbackResetTokenTTL
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.ResetTokenTTL > 0 {
		resetTokenTTL = params.Config.Auth.ResetTokenTTL
	}

	return &passwordService{
		txManager:     params.TxManager,
		accountRepo:   params.AccountRepo,
		hasher:        params.Hasher,
		tokenGen:      params.TokenGenerator,
		mails:         newMailDispatcher(params.Mailer, params.Composer, params.Logger),
		resetTokenTTL: resetTokenTTL,
		logger:        params.Logger,
		now:           time.Now,
	}
}

func (srv *passwordService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ForgotPassword starts a reset window and mails the link. Unknown emails are
// accepted silently so callers cannot probe for accounts.
func (srv *passwordService) ForgotPassword(ctx context.Context, email, origin string) error {
	token, err := srv.tokenGen.Generate()
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}

	var account *entity.Account
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		found, err := accountRepo.FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to find account by email")
		}

		now := srv.now()
		found.SetResetToken(srv.tokenGen.Hash(token), now.Add(srv.resetTokenTTL))
		found.Touch(now)

		if err := accountRepo.Update(ctx, found); err != nil {
			return errors.Wrap(err, "failed to store reset token")
		}
		account = found

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to start password reset", slog.Any("error", err))

		return errors.Wrap(err, "failed to start password reset")
	}

	if account == nil {
		srv.log(ctx).Debug("Password reset requested for unknown email")

		return nil
	}

	srv.log(ctx).Info("Password reset started", slog.Uint64("accountID", account.ID))
	srv.mails.passwordReset(ctx, account, token, origin)

	return nil
}

// ValidateResetToken reports whether the token names a pending, unexpired reset.
func (srv *passwordService) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return domainerrors.ErrInvalidOrExpiredToken.WrapMessage("reset token is required")
	}

	account, err := srv.accountRepo.FindByResetToken(ctx, srv.tokenGen.Hash(token))
	if errors.Is(err, repository.ErrAccountNotFound) {
		return domainerrors.ErrInvalidOrExpiredToken.WrapMessage("unknown reset token")
	}
	if err != nil {
		return errors.Wrap(err, "failed to find account by reset token")
	}

	if !account.HasValidResetToken(srv.now()) {
		return domainerrors.ErrInvalidOrExpiredToken.WrapMessage("reset token expired")
	}

	return nil
}

// ResetPassword replaces the password, consumes the reset token and revokes every
// refresh token of the account. Proving control of the mailbox also verifies it.
func (srv *passwordService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	if input.Token == "" {
		return domainerrors.ErrInvalidOrExpiredToken.WrapMessage("reset token is required")
	}

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		return errors.Wrap(err, "password does not meet security requirements")
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	var (
		accountID uint64
		revoked   int64
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByResetToken(ctx, srv.tokenGen.Hash(input.Token))
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrInvalidOrExpiredToken.WrapMessage("unknown reset token")
		}
		if err != nil {
			return errors.Wrap(err, "failed to find account by reset token")
		}

		now := srv.now()
		if !account.HasValidResetToken(now) {
			return domainerrors.ErrInvalidOrExpiredToken.WrapMessage("reset token expired")
		}

		account.PasswordHash = passwordHash
		account.ClearResetToken()
		account.PasswordReset = &now
		account.MarkVerified(now)
		account.Touch(now)

		if err := accountRepo.Update(ctx, account); err != nil {
			return errors.Wrap(err, "failed to store new password")
		}

		revoked, err = repoFactory.NewRefreshTokenRepository().RevokeAllForAccount(ctx, account.ID, entity.TokenRevocation{At: now, ByIP: input.IPAddress})
		if err != nil {
			return errors.Wrap(err, "failed to revoke sessions")
		}
		accountID = account.ID

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to reset password")
	}

	srv.log(ctx).Info("Password reset completed", slog.Uint64("accountID", accountID), slog.Int64("revokedSessions", revoked))

	return nil
}
