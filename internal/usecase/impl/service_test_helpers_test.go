package impl

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"hrdesk/config"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/infra/auth"
	"hrdesk/internal/infra/mail"
	"hrdesk/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Sup3r!Secret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	cfg      *config.Config
	store    *memoryStore
	mailer   *mockMailer
	hasher   service.PasswordHasher
	tokenGen service.TokenGenerator
	tokens   service.TokenService
	clock    *testClock

	auth         *authService
	registration *registrationService
	password     *passwordService
	accounts     *accountService
	sessions     *sessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	return newTestEnvWithConfig(t, newTestConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	env := &testEnv{
		cfg:      cfg,
		store:    newMemoryStore(),
		mailer:   newMockMailer(),
		hasher:   auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		tokenGen: auth.NewTokenGenerator(),
		tokens:   tokenService,
		clock:    &testClock{now: time.Now()},
	}
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	txManager := &memoryTxManager{store: env.store}
	accountRepo := &memoryAccountRepository{store: env.store}
	refreshTokenRepo := &memoryRefreshTokenRepository{store: env.store}
	composer := mail.NewComposer(cfg)
	logger := newDiscardLogger()

	env.auth = NewAuthService(AuthServiceParams{
		TxManager:        txManager,
		AccountRepo:      accountRepo,
		RefreshTokenRepo: refreshTokenRepo,
		Hasher:           env.hasher,
		TokenService:     env.tokens,
		TokenGenerator:   env.tokenGen,
		Mailer:           env.mailer,
		Composer:         composer,
		Config:           cfg,
		Logger:           logger,
	}).(*authService)
	env.auth.now = env.clock.Now

	env.registration = NewRegistrationService(RegistrationServiceParams{
		TxManager:      txManager,
		Hasher:         env.hasher,
		TokenGenerator: env.tokenGen,
		Mailer:         env.mailer,
		Composer:       composer,
		Config:         cfg,
		Logger:         logger,
	}).(*registrationService)
	env.registration.now = env.clock.Now

	env.password = NewPasswordService(PasswordServiceParams{
		TxManager:      txManager,
		AccountRepo:    accountRepo,
		Hasher:         env.hasher,
		TokenGenerator: env.tokenGen,
		Mailer:         env.mailer,
		Composer:       composer,
		Config:         cfg,
		Logger:         logger,
	}).(*passwordService)
	env.password.now = env.clock.Now

	env.accounts = NewAccountService(AccountServiceParams{
		TxManager:   txManager,
		AccountRepo: accountRepo,
		Hasher:      env.hasher,
		Logger:      logger,
	}).(*accountService)
	env.accounts.now = env.clock.Now

	env.sessions = NewSessionService(SessionServiceParams{
		TxManager:        txManager,
		AccountRepo:      accountRepo,
		RefreshTokenRepo: refreshTokenRepo,
		Logger:           logger,
	}).(*sessionService)
	env.sessions.now = env.clock.Now

	return env
}

// failMail makes every Send fail with err.
func (env *testEnv) failMail(err error) {
	env.mailer.ExpectedCalls = nil
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(err)
}

func (env *testEnv) seedAccount(t *testing.T, email string, role entity.Role, verified, active bool) *entity.Account {
	t.Helper()

	hash, err := env.hasher.Hash(testPassword)
	require.NoError(t, err)

	account := &entity.Account{
		Title:        "Mx",
		FirstName:    "Test",
		LastName:     "Account",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
		Created:      env.clock.Now(),
	}
	if verified {
		account.MarkVerified(env.clock.Now())
	} else {
		token, err := env.tokenGen.Generate()
		require.NoError(t, err)
		digest := env.tokenGen.Hash(token)
		account.VerificationToken = &digest
	}

	return env.store.seedAccount(account)
}

var mailedTokenPattern = regexp.MustCompile(`token=([0-9a-f]+)`)

// mailedToken extracts the raw token from the link in msg.
func mailedToken(t *testing.T, msg *entity.MailMessage) string {
	t.Helper()

	match := mailedTokenPattern.FindStringSubmatch(msg.HTMLBody)
	require.Len(t, match, 2, "no token link in %q", msg.HTMLBody)

	return match[1]
}

func (env *testEnv) signIn(t *testing.T, email string) *usecase.AuthOutput {
	t.Helper()

	out, err := env.auth.Authenticate(context.Background(), &usecase.AuthenticateInput{
		Email:     email,
		Password:  testPassword,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)

	return out
}

func (env *testEnv) principal(t *testing.T, accountID uint64) *entity.Principal {
	t.Helper()

	principal, err := env.auth.ResolvePrincipal(context.Background(), accountID)
	require.NoError(t, err)

	return principal
}
