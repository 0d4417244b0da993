package mail

import (
	"context"
	"log/slog"

	"hrdesk/config"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/errors"

	"gopkg.in/gomail.v2"
)

// smtpMailer sends mail synchronously through an SMTP relay.
type smtpMailer struct {
	from   string
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewSMTPMailer builds a gomail backed Mailer from the mail configuration.
func NewSMTPMailer(cfg *config.Config, logger *slog.Logger) (service.Mailer, error) {
	if cfg.Mail == nil || cfg.Mail.SMTP.Host == "" {
		return nil, errors.New("smtp host is required for the smtp mailer")
	}
	if cfg.Mail.From == "" {
		return nil, errors.New("mail from address is required")
	}

	smtp := cfg.Mail.SMTP

	return &smtpMailer{
		from:   cfg.Mail.From,
		dialer: gomail.NewDialer(smtp.Host, smtp.Port, smtp.UserName, smtp.Password),
		logger: logger,
	}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg *entity.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return errors.Wrap(err, "failed to send mail over smtp")
	}

	m.logger.Debug("[SMTP] Mail sent", slog.String("subject", msg.Subject))

	return nil
}
