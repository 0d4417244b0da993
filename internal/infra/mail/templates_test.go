package mail

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"hrdesk/config"
	"hrdesk/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{ResetTokenTTL: 24 * time.Hour},
		Mail: &config.MailConfig{
			VerifyURLPath: "/account/verify-email",
			ResetURLPath:  "/account/reset-password",
		},
	}
}

func TestComposer_VerificationWithOrigin(t *testing.T) {
	composer := NewComposer(newTestConfig())
	account := &entity.Account{Email: "ann@example.com", FirstName: "Ann"}

	msg, err := composer.Verification(account, "abc123", "https://hr.example.com/")
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", msg.To)
	assert.Contains(t, msg.HTMLBody, "https://hr.example.com/account/verify-email?token=abc123")
	assert.Contains(t, msg.HTMLBody, "Ann")
}

func TestComposer_VerificationWithoutOrigin(t *testing.T) {
	composer := NewComposer(newTestConfig())

	msg, err := composer.Verification(&entity.Account{Email: "a@b.c"}, "abc123", "")
	require.NoError(t, err)

	assert.Contains(t, msg.HTMLBody, "<code>abc123</code>")
	assert.Contains(t, msg.HTMLBody, "/accounts/verify-email")
}

func TestComposer_PasswordReset(t *testing.T) {
	composer := NewComposer(newTestConfig())

	msg, err := composer.PasswordReset(&entity.Account{Email: "a@b.c"}, "tok", "http://localhost:4200")
	require.NoError(t, err)

	assert.Contains(t, msg.HTMLBody, "http://localhost:4200/account/reset-password?token=tok")
	assert.Contains(t, msg.HTMLBody, "24h0m0s")
}

func TestComposer_AlreadyRegisteredEscapesEmail(t *testing.T) {
	composer := NewComposer(newTestConfig())

	msg, err := composer.AlreadyRegistered(&entity.Account{Email: "<script>@x.y"}, "")
	require.NoError(t, err)

	assert.NotContains(t, msg.HTMLBody, "<script>")
	assert.Contains(t, msg.HTMLBody, "/accounts/forgot-password")
}

func TestBuildLink_RejectsNonHTTPOrigins(t *testing.T) {
	assert.Empty(t, buildLink("javascript:alert(1)", "/x", "t"))
	assert.Empty(t, buildLink("not a url", "/x", "t"))
	assert.Equal(t, "https://a.b/x?token=t", buildLink("https://a.b", "/x", "t"))
}

func TestNewMailer_SelectsProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := newTestConfig()
	mailer, err := NewMailer(MailerParams{Config: cfg, Logger: logger})
	require.NoError(t, err)
	assert.IsType(t, &logMailer{}, mailer)
	assert.NoError(t, mailer.Send(context.Background(), &entity.MailMessage{Subject: "s"}))

	cfg.Mail.Provider = "smtp"
	_, err = NewMailer(MailerParams{Config: cfg, Logger: logger})
	assert.Error(t, err, "smtp without host must fail")

	cfg.Mail.SMTP.Host = "localhost"
	cfg.Mail.From = "no-reply@example.com"
	mailer, err = NewMailer(MailerParams{Config: cfg, Logger: logger})
	require.NoError(t, err)
	assert.IsType(t, &smtpMailer{}, mailer)

	cfg.Mail.Provider = "carrier-pigeon"
	_, err = NewMailer(MailerParams{Config: cfg, Logger: logger})
	assert.Error(t, err)
}
