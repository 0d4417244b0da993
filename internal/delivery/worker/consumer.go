package worker

import (
	"context"
	"log/slog"
	"time"

	"hrdesk/config"
	"hrdesk/internal/delivery"
	"hrdesk/internal/delivery/worker/handler"
	"hrdesk/internal/infra/pubsub"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
)

const (
	defaultPrefetch    = 10
	defaultMaxAttempts = 5
	defaultRetryDelay  = 2 * time.Second
	initialBackoff     = time.Second
	maxBackoff         = 30 * time.Second

	// attemptHeader counts failed sends carried by a republished message.
	attemptHeader = "x-attempt"
)

// errDeliveriesClosed reports that the broker closed the delivery channel.
var errDeliveriesClosed = errors.New("deliveries channel closed")

// ConsumerParams holds dependencies for the queue consumer
type ConsumerParams struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       *config.Config
	Logger    *slog.Logger
	Deliverer *handler.MailDeliverer
}

// queueConsumer drains the mail queue. It reconnects until the process stops.
type queueConsumer struct {
	url         string
	queue       string
	prefetch    int
	maxAttempts int
	retryDelay  time.Duration
	deliverer   *handler.MailDeliverer
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates the RabbitMQ mail consumer. Without a broker url it serves nothing.
func NewConsumer(params ConsumerParams) delivery.Delivery {
	rmq := params.Cfg.RabbitMQ
	if rmq == nil || rmq.URL == "" {
		params.Logger.Info("RabbitMQ not configured, mail queue consumer disabled")

		return noopDelivery{}
	}

	prefetch := rmq.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}
	maxAttempts := rmq.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryDelay := rmq.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &queueConsumer{
		url:         rmq.URL,
		queue:       rmq.MailQueue,
		prefetch:    prefetch,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		deliverer:   params.Deliverer,
		logger:      params.Logger,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: c.stop,
	})

	return c
}

// Serve blocks, reconnecting with exponential backoff, until the consumer is stopped.
func (c *queueConsumer) Serve(ctx context.Context) error {
	defer close(c.done)

	c.logger.Info("Starting mail queue consumer", slog.String("queue", c.queue))

	backoff := initialBackoff
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("Failed to dial rabbitmq",
				slog.Any("error", err),
				slog.Duration("retry_in", backoff),
			)
			if !c.sleep(backoff) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)

			continue
		}
		backoff = initialBackoff

		err = c.consume(conn)
		_ = conn.Close()
		if c.ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("Mail queue consume loop ended, reconnecting", slog.Any("error", err))
		if !c.sleep(backoff) {
			return nil
		}
	}
}

func (c *queueConsumer) consume(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open channel")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return errors.Wrap(err, "failed to set qos")
	}

	if _, err := pubsub.DeclareMailQueue(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "failed to consume")
	}

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			c.handle(ch, d)
		}
	}
}

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// retryFunc republishes the current message carrying the given attempt count.
type retryFunc func(attempt int) error

func (c *queueConsumer) handle(ch *amqp.Channel, d amqp.Delivery) {
	retry := func(attempt int) error {
		headers := amqp.Table{}
		for k, v := range d.Headers {
			headers[k] = v
		}
		headers[attemptHeader] = int32(attempt)

		err := ch.PublishWithContext(c.ctx, "", c.queue, false, false, amqp.Publishing{
			ContentType:   d.ContentType,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: d.CorrelationId,
			MessageId:     d.MessageId,
			Headers:       headers,
			Body:          d.Body,
		})

		return errors.Wrap(err, "failed to republish mail message")
	}

	c.settle(d, d.Body, d.CorrelationId, deliveryAttempt(d.Headers), retry)
}

// settle acks sent mail and dead-letters malformed payloads. A failed send is
// republished with its attempt count after a growing delay, and dead-lettered
// once maxAttempts is reached.
func (c *queueConsumer) settle(ack acknowledger, body []byte, correlationID string, attempt int, retry retryFunc) {
	msg, err := c.deliverer.Decode(body)
	if err != nil {
		c.logger.Error("[Worker] Dead-lettering malformed mail message", slog.Any("error", err))
		c.nack(ack, false)

		return
	}

	if err := c.deliverer.Deliver(c.ctx, msg, correlationID); err == nil {
		c.ack(ack)

		return
	}

	next := attempt + 1
	logger := c.logger.With(slog.String("request_id", correlationID), slog.Int("attempt", next))
	if next >= c.maxAttempts {
		logger.Error("[Worker] Mail delivery attempts exhausted, dead-lettering")
		c.nack(ack, false)

		return
	}

	if !c.sleep(c.retryBackoff(attempt)) {
		c.nack(ack, true)

		return
	}

	if err := retry(next); err != nil {
		logger.Warn("[Worker] Retry publish failed, requeueing", slog.Any("error", err))
		c.nack(ack, true)

		return
	}

	c.ack(ack)
}

// retryBackoff doubles retryDelay per previous attempt, capped at maxBackoff.
func (c *queueConsumer) retryBackoff(attempt int) time.Duration {
	delay := c.retryDelay
	for range attempt {
		if delay >= maxBackoff {
			break
		}
		delay *= 2
	}

	return min(delay, maxBackoff)
}

func (c *queueConsumer) ack(ack acknowledger) {
	if err := ack.Ack(false); err != nil {
		c.logger.Warn("[Worker] Failed to ack mail message", slog.Any("error", err))
	}
}

func (c *queueConsumer) nack(ack acknowledger, requeue bool) {
	if err := ack.Nack(false, requeue); err != nil {
		c.logger.Warn("[Worker] Failed to nack mail message", slog.Bool("requeue", requeue), slog.Any("error", err))
	}
}

// deliveryAttempt reads attemptHeader; messages without it are on their first attempt.
func deliveryAttempt(headers amqp.Table) int {
	switch v := headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// sleep waits for d and reports false when the consumer stopped meanwhile.
func (c *queueConsumer) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *queueConsumer) stop(ctx context.Context) error {
	c.logger.Info("Shutting down mail queue consumer")
	c.cancel()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// noopDelivery is served when the consumer is disabled.
type noopDelivery struct{}

func (noopDelivery) Serve(context.Context) error {
	return nil
}
