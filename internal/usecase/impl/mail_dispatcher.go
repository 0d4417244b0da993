package impl

import (
	"context"
	"log/slog"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"
)

// mailDispatcher renders and sends account lifecycle emails.
// Delivery is best effort: failures are logged and never fail the calling operation.
type mailDispatcher struct {
	mailer   service.Mailer
	composer service.MailComposer
	logger   *slog.Logger
}

func newMailDispatcher(mailer service.Mailer, composer service.MailComposer, logger *slog.Logger) *mailDispatcher {
	return &mailDispatcher{
		mailer:   mailer,
		composer: composer,
		logger:   logger,
	}
}

func (d *mailDispatcher) verification(ctx context.Context, account *entity.Account, token, origin string) {
	d.dispatch(ctx, "verification", account, func() (*entity.MailMessage, error) {
		return d.composer.Verification(account, token, origin)
	})
}

func (d *mailDispatcher) alreadyRegistered(ctx context.Context, account *entity.Account, origin string) {
	d.dispatch(ctx, "already_registered", account, func() (*entity.MailMessage, error) {
		return d.composer.AlreadyRegistered(account, origin)
	})
}

func (d *mailDispatcher) passwordReset(ctx context.Context, account *entity.Account, token, origin string) {
	d.dispatch(ctx, "password_reset", account, func() (*entity.MailMessage, error) {
		return d.composer.PasswordReset(account, token, origin)
	})
}

func (d *mailDispatcher) dispatch(ctx context.Context, kind string, account *entity.Account, render func() (*entity.MailMessage, error)) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, d.logger)
	if d.mailer == nil || d.composer == nil {
		logger.Warn("Mail dispatch not configured", slog.String("kind", kind), slog.Uint64("accountID", account.ID))

		return
	}

	msg, err := render()
	if err != nil {
		logger.Error("Failed to render email", slog.String("kind", kind), slog.Uint64("accountID", account.ID), slog.Any("error", err))

		return
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		logger.Error("Failed to send email", slog.String("kind", kind), slog.Uint64("accountID", account.ID), slog.Any("error", err))

		return
	}

	logger.Debug("Email dispatched", slog.String("kind", kind), slog.Uint64("accountID", account.ID))
}
