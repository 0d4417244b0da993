package pubsub

import (
	"context"
	"log/slog"

	"hrdesk/config"
	"hrdesk/internal/domain/constants"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// noopPublisher is used when mail is sent inline or not at all
type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) Publish(ctx context.Context, msg *entity.MailMessage) error {
	p.logger.Debug("[NoopPubSub] Mail queue disabled, skipping",
		slog.String("subject", msg.Subject),
	)

	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// PublisherParams holds dependencies for MailPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewMailPublisher creates a MailPublisher based on mail.provider
func NewMailPublisher(params PublisherParams) (service.MailPublisher, error) {
	logger := params.Logger

	provider := ""
	if params.Config.Mail != nil {
		provider = params.Config.Mail.Provider
	}

	var publisher service.MailPublisher

	switch provider {
	case constants.MailProviderLocal:
		endpoint := params.Config.Mail.LocalEndpoint
		if endpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP publisher for mail", slog.String("endpoint", endpoint))

		publisher = NewLocalHTTPPublisher(endpoint, logger)

	case constants.MailProviderRabbitMQ:
		rmq := params.Config.RabbitMQ
		if rmq == nil || rmq.URL == "" {
			return nil, errors.New("rabbitmq url is required for rabbitmq provider")
		}
		logger.Info("Using RabbitMQ publisher for mail", slog.String("queue", rmq.MailQueue))

		publisher = NewRabbitMQPublisher(rmq.URL, rmq.MailQueue, logger)

	default:
		return &noopPublisher{logger: logger}, nil
	}

	// Register lifecycle hook to close publisher on shutdown
	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing MailPublisher")

			return publisher.Close()
		},
	})

	return publisher, nil
}
