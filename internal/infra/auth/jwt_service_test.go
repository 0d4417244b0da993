package auth

import (
	"testing"
	"time"

	"hrdesk/config"
	"hrdesk/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_access_secret_key_very_long_for_testing"

func newTestConfig() *config.Config {
	cfg := &config.Config{Auth: &config.AuthConfig{AccessTokenTTL: 15 * time.Minute}}
	cfg.SecretKey.Access = testSecret

	return cfg
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	account := &entity.Account{ID: 42, Role: entity.RoleAdmin}
	token, err := svc.IssueAccessToken(account)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.AccountID)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTService_MissingSecret(t *testing.T) {
	cfg := newTestConfig()
	cfg.SecretKey.Access = ""

	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := newJWTService(testSecret, 15*time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := svc.IssueAccessToken(&entity.Account{ID: 1, Role: entity.RoleUser})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_WrongSecret(t *testing.T) {
	issuer := newJWTService("another_secret_value_for_signing", 15*time.Minute)
	token, err := issuer.IssueAccessToken(&entity.Account{ID: 1, Role: entity.RoleUser})
	require.NoError(t, err)

	_, err = newJWTService(testSecret, 15*time.Minute).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"id":   1,
		"role": "Admin",
		"sub":  "1",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newJWTService(testSecret, time.Minute).ValidateAccessToken(unsigned)
	assert.Error(t, err)
}

func TestJWTService_MalformedToken(t *testing.T) {
	svc := newJWTService(testSecret, time.Minute)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ValidateAccessToken(token)
		assert.Error(t, err, token)
	}
}
