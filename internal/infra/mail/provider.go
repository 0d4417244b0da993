package mail

import (
	"log/slog"

	"hrdesk/config"
	"hrdesk/internal/domain/constants"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/errors"

	"go.uber.org/fx"
)

// MailerParams holds dependencies for the API-side Mailer, injected by Fx
type MailerParams struct {
	fx.In

	Config    *config.Config
	Logger    *slog.Logger
	Publisher service.MailPublisher
}

// NewMailer selects the Mailer used by the use cases from mail.provider.
func NewMailer(params MailerParams) (service.Mailer, error) {
	provider := ""
	if params.Config.Mail != nil {
		provider = params.Config.Mail.Provider
	}

	switch provider {
	case "":
		params.Logger.Info("Mail provider not configured, using log-only mailer")

		return &logMailer{logger: params.Logger}, nil
	case constants.MailProviderSMTP:
		return NewSMTPMailer(params.Config, params.Logger)
	case constants.MailProviderLocal, constants.MailProviderRabbitMQ:
		return newQueuedMailer(params.Publisher, params.Logger), nil
	default:
		return nil, errors.Errorf("unknown mail provider: %s", provider)
	}
}
