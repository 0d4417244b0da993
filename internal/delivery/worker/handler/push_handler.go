// Package handler contains the mail worker's message handlers.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ErrMalformedMessage marks a payload that can never be delivered and must not be retried.
var ErrMalformedMessage = errors.New("malformed mail message")

// PushMessage represents the structure of a Pub/Sub style push message
type PushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// MailDelivererParams holds dependencies for the MailDeliverer
type MailDelivererParams struct {
	fx.In

	Mailer service.Mailer
	Logger *slog.Logger
}

// MailDeliverer decodes queued mail and sends it. Shared by the push endpoint and the queue consumer.
type MailDeliverer struct {
	mailer service.Mailer
	logger *slog.Logger
}

// NewMailDeliverer creates a new MailDeliverer
func NewMailDeliverer(params MailDelivererParams) *MailDeliverer {
	return &MailDeliverer{
		mailer: params.Mailer,
		logger: params.Logger,
	}
}

// Decode parses a queued mail payload. Any failure wraps ErrMalformedMessage.
func (d *MailDeliverer) Decode(data []byte) (*entity.MailMessage, error) {
	var msg entity.MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(ErrMalformedMessage, err.Error())
	}

	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.Wrap(ErrMalformedMessage, "missing recipient")
	}

	return &msg, nil
}

// Deliver sends one decoded message with a logger scoped to its request id.
// Returned errors are transport failures and worth retrying.
func (d *MailDeliverer) Deliver(ctx context.Context, msg *entity.MailMessage, requestID string) error {
	if requestID == "" {
		requestID = msg.RequestID
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	reqLogger := deliverycontext.GetLoggerOrDefault(ctx, d.logger).With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	if err := d.mailer.Send(ctx, msg); err != nil {
		reqLogger.Error("[Worker] Failed to send mail",
			slog.String("subject", msg.Subject),
			slog.Any("error", err),
		)

		return err
	}

	reqLogger.Info("[Worker] Mail sent", slog.String("subject", msg.Subject))

	return nil
}

// PushHandler handles push deliveries from the local publisher
type PushHandler struct {
	deliverer *MailDeliverer
	logger    *slog.Logger
}

// NewPushHandler creates a new push handler
func NewPushHandler(deliverer *MailDeliverer, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		deliverer: deliverer,
		logger:    logger,
	}
}

// HandlePush answers 400 for payloads that can never succeed and 500 when sending
// failed, so the publisher sees the failure and may retry.
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()
	logger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	var pushMsg PushMessage
	if err := c.Bind(&pushMsg); err != nil {
		logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	msg, err := h.deliverer.Decode(data)
	if err != nil {
		logger.Error("[Worker] Rejected mail message",
			slog.String("message_id", pushMsg.Message.MessageID),
			slog.Any("error", err),
		)

		return c.NoContent(http.StatusBadRequest)
	}

	// Priority: message attributes > payload > X-Request-Id header
	requestID := pushMsg.Message.Attributes["request_id"]
	if requestID == "" && msg.RequestID == "" {
		requestID = deliverycontext.GetRequestIDFromContext(ctx)
	}

	if err := h.deliverer.Deliver(ctx, msg, requestID); err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}

	return c.NoContent(http.StatusOK)
}
