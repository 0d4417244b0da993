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

// registrationService implements the RegistrationUsecase interface.
type registrationService struct {
	txManager            repository.TransactionManager
	hasher               service.PasswordHasher
	tokenGen             service.TokenGenerator
	mails                *mailDispatcher
	revealDuplicateEmail bool
	logger               *slog.Logger
	now                  func() time.Time
}

// RegistrationServiceParams holds dependencies for RegistrationService, injected by Fx.
type RegistrationServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	Hasher         service.PasswordHasher
	TokenGenerator service.TokenGenerator
	Mailer         service.Mailer
	Composer       service.MailComposer
	Config         *config.Config
	Logger         *slog.Logger
}

// NewRegistrationService is the constructor for registrationService.
func NewRegistrationService(params RegistrationServiceParams) usecase.RegistrationUsecase {
	reveal := false
	if params.Config != nil && params.Config.Auth != nil {
		reveal = params.Config.Auth.RevealDuplicateEmail
	}

	return &registrationService{
		txManager:            params.TxManager,
		hasher:               params.Hasher,
		tokenGen:             params.TokenGenerator,
		mails:                newMailDispatcher(params.Mailer, params.Composer, params.Logger),
		revealDuplicateEmail: reveal,
		logger:               params.Logger,
		now:                  time.Now,
	}
}

func (srv *registrationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an account. The very first account becomes a verified Admin;
// every later one is an unverified User that receives a verification email.
func (srv *registrationService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		srv.log(ctx).Warn("Password validation failed during registration", slog.Any("error", err))

		return nil, errors.Wrap(err, "password does not meet security requirements")
	}

	// Hashing happens before the lookup so a duplicate costs the same as a new account.
	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	verificationToken, err := srv.tokenGen.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate verification token")
	}

	var (
		created  *entity.Account
		existing *entity.Account
	)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		if err := accountRepo.LockRegistration(ctx); err != nil {
			return errors.Wrap(err, "failed to acquire registration lock")
		}

		found, err := accountRepo.FindByEmail(ctx, input.Email)
		if err == nil {
			existing = found

			return nil
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(err, "failed to look up email")
		}

		count, err := accountRepo.Count(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to count accounts")
		}

		now := srv.now()
		account := &entity.Account{
			Title:        input.Title,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			Email:        input.Email,
			PasswordHash: passwordHash,
			Role:         entity.RoleUser,
			IsActive:     true,
			Created:      now,
		}
		if count == 0 {
			account.Role = entity.RoleAdmin
			account.MarkVerified(now)
		} else {
			digest := srv.tokenGen.Hash(verificationToken)
			account.VerificationToken = &digest
		}

		if err := accountRepo.Create(ctx, account); err != nil {
			return errors.Wrap(err, "failed to create account")
		}
		created = account

		return nil
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return srv.answerDuplicate(ctx, nil, input)
	}
	if err != nil {
		srv.log(ctx).Error("Failed to execute registration transaction", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute registration transaction")
	}

	if existing != nil {
		return srv.answerDuplicate(ctx, existing, input)
	}

	srv.log(ctx).Info("Account registered", slog.Uint64("accountID", created.ID), slog.String("role", string(created.Role)))

	if created.IsVerified {
		return &usecase.RegisterOutput{Account: created}, nil
	}

	srv.mails.verification(ctx, created, verificationToken, input.Origin)

	return &usecase.RegisterOutput{Account: created, VerificationToken: verificationToken}, nil
}

// answerDuplicate either reveals the collision or answers like a fresh registration
// and tells the existing owner instead.
func (srv *registrationService) answerDuplicate(ctx context.Context, existing *entity.Account, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	if srv.revealDuplicateEmail {
		return nil, domainerrors.ErrEmailAlreadyRegistered.WrapMessage("registration for existing email")
	}

	if existing != nil {
		srv.log(ctx).Info("Registration for existing email", slog.Uint64("accountID", existing.ID))
		srv.mails.alreadyRegistered(ctx, existing, input.Origin)
	}

	return &usecase.RegisterOutput{}, nil
}

// VerifyEmail consumes a verification token.
func (srv *registrationService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return domainerrors.ErrVerificationFailed.WrapMessage("verification token is required")
	}

	var verifiedID uint64
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByVerificationToken(ctx, srv.tokenGen.Hash(token))
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrVerificationFailed.WrapMessage("unknown verification token")
		}
		if err != nil {
			return errors.Wrap(err, "failed to find account by verification token")
		}

		now := srv.now()
		account.MarkVerified(now)
		account.Touch(now)

		if err := accountRepo.Update(ctx, account); err != nil {
			return errors.Wrap(err, "failed to mark account verified")
		}
		verifiedID = account.ID

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to verify email")
	}

	srv.log(ctx).Info("Email verified", slog.Uint64("accountID", verifiedID))

	return nil
}
