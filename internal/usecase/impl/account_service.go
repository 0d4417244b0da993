package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/repository"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	logger      *slog.Logger
	now         func() time.Time
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		logger:      params.Logger,
		now:         time.Now,
	}
}

func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *accountService) ListAccounts(ctx context.Context, requester *entity.Principal) ([]*entity.Account, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	accounts, err := srv.accountRepo.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	return accounts, nil
}

func (srv *accountService) GetAccount(ctx context.Context, requester *entity.Principal, id uint64) (*entity.Account, error) {
	if err := requireAccess(requester, id); err != nil {
		return nil, err
	}

	account, err := srv.accountRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, domainerrors.ErrAccountNotFound.WrapMessage("account lookup")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}

	return account, nil
}

// CreateAccount lets an Admin create an account that is verified on creation.
func (srv *accountService) CreateAccount(ctx context.Context, requester *entity.Principal, input *usecase.CreateAccountInput) (*entity.Account, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("unknown role")
	}

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		return nil, errors.Wrap(err, "password does not meet security requirements")
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	now := srv.now()
	account := &entity.Account{
		Title:        input.Title,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         input.Role,
		IsActive:     true,
		Created:      now,
	}
	account.MarkVerified(now)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		if err := ensureEmailFree(ctx, accountRepo, input.Email, 0); err != nil {
			return err
		}

		return errors.Wrap(accountRepo.Create(ctx, account), "failed to create account")
	})
	if err != nil {
		return nil, mapDuplicateEmail(err)
	}

	srv.log(ctx).Info("Account created by admin", slog.Uint64("accountID", account.ID), slog.Uint64("principalID", requester.ID))

	return account, nil
}

// UpdateAccount applies the provided changes. Only an Admin may change role or activity.
func (srv *accountService) UpdateAccount(ctx context.Context, requester *entity.Principal, id uint64, input *usecase.UpdateAccountInput) (*entity.Account, error) {
	if err := requireAccess(requester, id); err != nil {
		return nil, err
	}
	if (input.Role != nil || input.IsActive != nil) && !requester.IsAdmin() {
		return nil, domainerrors.ErrForbidden.WrapMessage("only an admin may change role or activity")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("unknown role")
	}

	var passwordHash string
	if input.Password != nil {
		if err := srv.hasher.ValidatePasswordStrength(*input.Password); err != nil {
			return nil, errors.Wrap(err, "password does not meet security requirements")
		}

		hashed, err := srv.hasher.Hash(*input.Password)
		if err != nil {
			return nil, errors.Wrap(err, "failed to hash password")
		}
		passwordHash = hashed
	}

	var updated *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound.WrapMessage("account update")
		}
		if err != nil {
			return errors.Wrap(err, "failed to find account")
		}

		if input.Email != nil && *input.Email != account.Email {
			if err := ensureEmailFree(ctx, accountRepo, *input.Email, account.ID); err != nil {
				return err
			}
			account.Email = *input.Email
		}

		applyAccountChanges(account, input, passwordHash)
		account.Touch(srv.now())

		if err := accountRepo.Update(ctx, account); err != nil {
			return errors.Wrap(err, "failed to update account")
		}
		updated = account

		return nil
	})
	if err != nil {
		return nil, mapDuplicateEmail(err)
	}

	srv.log(ctx).Info("Account updated", slog.Uint64("accountID", id), slog.Uint64("principalID", requester.ID))

	return updated, nil
}

func applyAccountChanges(account *entity.Account, input *usecase.UpdateAccountInput, passwordHash string) {
	if input.Title != nil {
		account.Title = *input.Title
	}
	if input.FirstName != nil {
		account.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		account.LastName = *input.LastName
	}
	if passwordHash != "" {
		account.PasswordHash = passwordHash
	}
	if input.Role != nil {
		account.Role = *input.Role
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
}

// DeleteAccount removes the account together with its refresh tokens.
func (srv *accountService) DeleteAccount(ctx context.Context, requester *entity.Principal, id uint64) error {
	if err := requireAccess(requester, id); err != nil {
		return err
	}

	err := srv.accountRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return domainerrors.ErrAccountNotFound.WrapMessage("account delete")
	}
	if err != nil {
		return errors.Wrap(err, "failed to delete account")
	}

	srv.log(ctx).Info("Account deleted", slog.Uint64("accountID", id), slog.Uint64("principalID", requester.ID))

	return nil
}

func ensureEmailFree(ctx context.Context, accountRepo repository.AccountRepository, email string, ownerID uint64) error {
	found, err := accountRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to look up email")
	}
	if found.ID != ownerID {
		return domainerrors.ErrEmailAlreadyRegistered.WrapMessage("email belongs to another account")
	}

	return nil
}

func mapDuplicateEmail(err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return domainerrors.ErrEmailAlreadyRegistered.WrapMessage("email collided on write")
	}

	return err
}

func requireAdmin(requester *entity.Principal) error {
	if requester == nil {
		return domainerrors.ErrUnauthorized.WrapMessage("missing principal")
	}
	if !requester.IsAdmin() {
		return domainerrors.ErrForbidden.WrapMessage("admin role required")
	}

	return nil
}

func requireAccess(requester *entity.Principal, accountID uint64) error {
	if requester == nil {
		return domainerrors.ErrUnauthorized.WrapMessage("missing principal")
	}
	if !requester.CanAccess(accountID) {
		return domainerrors.ErrForbidden.WrapMessage("account belongs to another principal")
	}

	return nil
}
