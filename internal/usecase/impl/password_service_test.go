package impl

import (
	"context"
	"testing"
	"time"

	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/errors"
	"hrdesk/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newPassword = "N3w!Passphrase"

// startReset runs ForgotPassword and returns the token it mailed.
func startReset(t *testing.T, env *testEnv, account *entity.Account) string {
	t.Helper()

	require.NoError(t, env.password.ForgotPassword(context.Background(), account.Email, "https://hr.example.com"))

	sent := env.mailer.sentTo(account.Email)
	require.NotEmpty(t, sent)

	return mailedToken(t, sent[len(sent)-1])
}

func TestForgotPassword_KnownEmail(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "alice@example.com", entity.RoleUser, true, true)

	token := startReset(t, env, account)

	stored := env.store.account(account.ID)
	require.NotNil(t, stored.ResetToken)
	assert.Equal(t, env.tokenGen.Hash(token), *stored.ResetToken, "only the digest is stored")
	require.NotNil(t, stored.ResetTokenExpires)
	assert.Equal(t, env.clock.Now().Add(24*time.Hour), *stored.ResetTokenExpires)

	sent := env.mailer.sentTo("alice@example.com")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTMLBody, "token="+token)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	err := env.password.ForgotPassword(context.Background(), "nobody@example.com", "")

	assert.NoError(t, err)
	env.mailer.AssertNumberOfCalls(t, "Send", 0)
}

func TestForgotPassword_MailFailureIsSilent(t *testing.T) {
	env := newTestEnv(t)
	env.failMail(errors.New("smtp down"))
	env.seedAccount(t, "alice@example.com", entity.RoleUser, true, true)

	assert.NoError(t, env.password.ForgotPassword(context.Background(), "alice@example.com", ""))
}

func TestForgotPassword_StoreFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	env.store.findByEmailErr = errors.New("connection reset")

	assert.Error(t, env.password.ForgotPassword(context.Background(), "alice@example.com", ""))
}

func TestValidateResetToken(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "alice@example.com", entity.RoleUser, true, true)
	token := startReset(t, env, account)

	assert.NoError(t, env.password.ValidateResetToken(context.Background(), token))
	assert.NoError(t, env.password.ValidateResetToken(context.Background(), token), "validation must not consume the token")

	assert.ErrorIs(t, env.password.ValidateResetToken(context.Background(), "unknown"), domainerrors.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, env.password.ValidateResetToken(context.Background(), ""), domainerrors.ErrInvalidOrExpiredToken)

	env.clock.Advance(24 * time.Hour)
	assert.ErrorIs(t, env.password.ValidateResetToken(context.Background(), token), domainerrors.ErrInvalidOrExpiredToken)
}

func TestResetPassword_Success(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "alice@example.com", entity.RoleUser, false, true)
	token := startReset(t, env, account)

	err := env.password.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: token, Password: newPassword})
	require.NoError(t, err)

	stored := env.store.account(account.ID)
	assert.True(t, env.hasher.Check(newPassword, stored.PasswordHash))
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpires)
	require.NotNil(t, stored.PasswordReset)
	assert.Equal(t, env.clock.Now(), *stored.PasswordReset)
	assert.True(t, stored.IsVerified, "a reset proves mailbox control")

	_, err = env.auth.Authenticate(context.Background(), &usecase.AuthenticateInput{Email: "alice@example.com", Password: newPassword})
	assert.NoError(t, err)

	err = env.password.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: token, Password: newPassword})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken, "reset token is single use")
}

func TestResetPassword_RevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, "alice@example.com", entity.RoleUser, true, true)
	first := env.signIn(t, "alice@example.com")
	second := env.signIn(t, "alice@example.com")
	token := startReset(t, env, account)

	err := env.password.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:     token,
		Password:  newPassword,
		IPAddress: "10.0.0.9",
	})
	require.NoError(t, err)

	for _, session := range []*usecase.AuthOutput{first, second} {
		_, err := env.auth.RefreshToken(context.Background(), session.RefreshToken, "10.0.0.1")
		assert.ErrorIs(t, err, domainerrors.ErrInvalidRefreshToken)
	}

	stored, err := env.sessions.ListRefreshTokens(context.Background(), env.principal(t, account.ID), account.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, rt := range stored {
		require.NotNil(t, rt.Revoked)
		require.NotNil(t, rt.RevokedByIP)
		assert.Equal(t, "10.0.0.9", *rt.RevokedByIP)
	}
}

func TestResetPassword_Rejections(t *testing.T) {
	t.Run("expired token", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.seedAccount(t, "alice@example.com", entity.RoleUser, true, true)
		token := startReset(t, env, account)
		env.clock.Advance(25 * time.Hour)

		err := env.password.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: token, Password: newPassword})

		assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken)
		assert.True(t, env.hasher.Check(testPassword, env.store.account(account.ID).PasswordHash))
	})

	t.Run("weak password", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.seedAccount(t, "alice@example.com", entity.RoleUser, true, true)
		token := startReset(t, env, account)

		err := env.password.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: token, Password: "weak"})

		assert.ErrorIs(t, err, domainerrors.ErrPasswordStrength)
		assert.NotNil(t, env.store.account(account.ID).ResetToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.password.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: "nope", Password: newPassword})

		assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken)
	})
}
