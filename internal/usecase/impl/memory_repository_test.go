package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"hrdesk/config"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/repository"
	"hrdesk/internal/errors"

	"github.com/stretchr/testify/mock"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:      4,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			ResetTokenTTL:   24 * time.Hour,
		},
		Mail: &config.MailConfig{
			VerifyURLPath: "/account/verify-email",
			ResetURLPath:  "/account/reset-password",
		},
	}
	cfg.SecretKey.Access = "test-access-secret"

	return cfg
}

// memoryStore mimics the two tables. Records are copied in and out so callers
// never share memory with the store, like rows read from a database.
// Transactions are not rolled back.
type memoryStore struct {
	mu           sync.Mutex
	registration sync.Mutex

	nextAccountID uint64
	nextTokenID   uint64
	accounts      map[uint64]*entity.Account
	tokens        []*entity.RefreshToken

	findByEmailErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[uint64]*entity.Account)}
}

func cloneAccount(account *entity.Account) *entity.Account {
	clone := *account

	return &clone
}

func cloneToken(token *entity.RefreshToken) *entity.RefreshToken {
	clone := *token

	return &clone
}

// seedAccount stores an account directly, bypassing the repositories.
func (s *memoryStore) seedAccount(account *entity.Account) *entity.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccountID++
	account.ID = s.nextAccountID
	s.accounts[account.ID] = cloneAccount(account)

	return account
}

func (s *memoryStore) account(id uint64) *entity.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil
	}

	return cloneAccount(account)
}

// putAccount overwrites a stored account, bypassing the repositories.
func (s *memoryStore) putAccount(account *entity.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.ID] = cloneAccount(account)
}

func (s *memoryStore) tokenByHash(hash string) *entity.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, token := range s.tokens {
		if token.TokenHash == hash {
			return cloneToken(token)
		}
	}

	return nil
}

func (s *memoryStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens)
}

// memoryTxManager runs every transaction against the shared store.
type memoryTxManager struct {
	store *memoryStore
	err   error
}

func (tm *memoryTxManager) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	if tm.err != nil {
		return tm.err
	}

	tx := &memoryTx{store: tm.store}
	defer tx.release()

	return fn(tx)
}

// memoryTx holds locks taken inside one transaction until it ends.
type memoryTx struct {
	store   *memoryStore
	unlocks []func()
}

func (tx *memoryTx) release() {
	for i := len(tx.unlocks) - 1; i >= 0; i-- {
		tx.unlocks[i]()
	}
}

func (tx *memoryTx) NewAccountRepository() repository.AccountRepository {
	return &memoryAccountRepository{store: tx.store, tx: tx}
}

func (tx *memoryTx) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return &memoryRefreshTokenRepository{store: tx.store}
}

type memoryAccountRepository struct {
	store *memoryStore
	tx    *memoryTx
}

func (r *memoryAccountRepository) emailTaken(email string, exceptID uint64) bool {
	for _, account := range r.store.accounts {
		if account.Email == email && account.ID != exceptID {
			return true
		}
	}

	return false
}

func (r *memoryAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.emailTaken(account.Email, 0) {
		return repository.ErrDuplicateEmail
	}

	r.store.nextAccountID++
	account.ID = r.store.nextAccountID
	r.store.accounts[account.ID] = cloneAccount(account)

	return nil
}

func (r *memoryAccountRepository) Update(ctx context.Context, account *entity.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[account.ID]; !ok {
		return repository.ErrAccountNotFound
	}
	if r.emailTaken(account.Email, account.ID) {
		return repository.ErrDuplicateEmail
	}

	r.store.accounts[account.ID] = cloneAccount(account)

	return nil
}

func (r *memoryAccountRepository) Delete(ctx context.Context, id uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[id]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(r.store.accounts, id)

	kept := r.store.tokens[:0]
	for _, token := range r.store.tokens {
		if token.AccountID != id {
			kept = append(kept, token)
		}
	}
	r.store.tokens = kept

	return nil
}

func (r *memoryAccountRepository) findFirst(match func(*entity.Account) bool) (*entity.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, account := range r.store.accounts {
		if match(account) {
			return cloneAccount(account), nil
		}
	}

	return nil, repository.ErrAccountNotFound
}

func (r *memoryAccountRepository) FindByID(ctx context.Context, id uint64) (*entity.Account, error) {
	return r.findFirst(func(a *entity.Account) bool { return a.ID == id })
}

func (r *memoryAccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	if r.store.findByEmailErr != nil {
		return nil, r.store.findByEmailErr
	}

	return r.findFirst(func(a *entity.Account) bool { return a.Email == email })
}

func (r *memoryAccountRepository) FindByVerificationToken(ctx context.Context, tokenHash string) (*entity.Account, error) {
	return r.findFirst(func(a *entity.Account) bool {
		return a.VerificationToken != nil && *a.VerificationToken == tokenHash
	})
}

func (r *memoryAccountRepository) FindByResetToken(ctx context.Context, tokenHash string) (*entity.Account, error) {
	return r.findFirst(func(a *entity.Account) bool {
		return a.ResetToken != nil && *a.ResetToken == tokenHash
	})
}

func (r *memoryAccountRepository) FindAll(ctx context.Context) ([]*entity.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	accounts := make([]*entity.Account, 0, len(r.store.accounts))
	for _, account := range r.store.accounts {
		accounts = append(accounts, cloneAccount(account))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return accounts, nil
}

func (r *memoryAccountRepository) Count(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return int64(len(r.store.accounts)), nil
}

func (r *memoryAccountRepository) LockRegistration(ctx context.Context) error {
	if r.tx == nil {
		return errors.New("registration lock requires a transaction")
	}

	r.store.registration.Lock()
	r.tx.unlocks = append(r.tx.unlocks, r.store.registration.Unlock)

	return nil
}

type memoryRefreshTokenRepository struct {
	store *memoryStore
}

func (r *memoryRefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextTokenID++
	token.ID = r.store.nextTokenID
	r.store.tokens = append(r.store.tokens, cloneToken(token))

	return nil
}

func (r *memoryRefreshTokenRepository) FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, token := range r.store.tokens {
		if token.TokenHash == tokenHash && token.IsUsable(now) {
			return cloneToken(token), nil
		}
	}

	return nil, repository.ErrRefreshTokenNotFound
}

func (r *memoryRefreshTokenRepository) FindByAccountID(ctx context.Context, accountID uint64) ([]*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var tokens []*entity.RefreshToken
	for i := len(r.store.tokens) - 1; i >= 0; i-- {
		if r.store.tokens[i].AccountID == accountID {
			tokens = append(tokens, cloneToken(r.store.tokens[i]))
		}
	}

	return tokens, nil
}

func (r *memoryRefreshTokenRepository) ExistsActiveForAccount(ctx context.Context, accountID uint64, tokenHash string, now time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, token := range r.store.tokens {
		if token.AccountID == accountID && token.TokenHash == tokenHash && token.IsUsable(now) {
			return true, nil
		}
	}

	return false, nil
}

// Revoke mirrors the conditional UPDATE: only a still usable row changes.
func (r *memoryRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string, revocation entity.TokenRevocation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, token := range r.store.tokens {
		if token.TokenHash == tokenHash && token.IsUsable(revocation.At) {
			applyRevocation(token, revocation)

			return nil
		}
	}

	return repository.ErrRefreshTokenNotFound
}

func (r *memoryRefreshTokenRepository) RevokeAllForAccount(ctx context.Context, accountID uint64, revocation entity.TokenRevocation) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var count int64
	for _, token := range r.store.tokens {
		if token.AccountID == accountID && token.IsUsable(revocation.At) {
			applyRevocation(token, revocation)
			count++
		}
	}

	return count, nil
}

func applyRevocation(token *entity.RefreshToken, revocation entity.TokenRevocation) {
	at := revocation.At
	byIP := revocation.ByIP
	token.Revoked = &at
	token.RevokedByIP = &byIP
	token.IsActive = false
	token.ReplacedByToken = revocation.ReplacedByToken
}

// mockMailer records dispatched mail.
type mockMailer struct {
	mock.Mock
	mu   sync.Mutex
	sent []*entity.MailMessage
}

func newMockMailer() *mockMailer {
	return &mockMailer{}
}

func (m *mockMailer) Send(ctx context.Context, msg *entity.MailMessage) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.sent = append(m.sent, msg)
		m.mu.Unlock()
	}

	return args.Error(0)
}

func (m *mockMailer) sentTo(email string) []*entity.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.MailMessage
	for _, msg := range m.sent {
		if msg.To == email {
			out = append(out, msg)
		}
	}

	return out
}
