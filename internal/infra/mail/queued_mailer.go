package mail

import (
	"context"
	"log/slog"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"
)

// queuedMailer hands messages to the mail worker through a MailPublisher.
type queuedMailer struct {
	publisher service.MailPublisher
	logger    *slog.Logger
}

func newQueuedMailer(publisher service.MailPublisher, logger *slog.Logger) service.Mailer {
	return &queuedMailer{publisher: publisher, logger: logger}
}

func (m *queuedMailer) Send(ctx context.Context, msg *entity.MailMessage) error {
	if msg.RequestID == "" {
		msg.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	}

	return m.publisher.Publish(ctx, msg)
}

// logMailer only records that a mail would have been sent.
type logMailer struct {
	logger *slog.Logger
}

func (m *logMailer) Send(ctx context.Context, msg *entity.MailMessage) error {
	deliverycontext.GetLoggerOrDefault(ctx, m.logger).Info("[LogMailer] Mail delivery disabled, skipping",
		slog.String("subject", msg.Subject),
	)

	return nil
}
