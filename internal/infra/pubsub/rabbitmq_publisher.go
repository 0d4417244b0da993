package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"hrdesk/internal/domain/entity"
	"hrdesk/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitMQPublisher publishes persistent mail messages to a durable queue.
// The connection is opened lazily and re-dialled after the broker drops it.
type rabbitMQPublisher struct {
	url    string
	queue  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQPublisher creates a publisher for the given queue.
func NewRabbitMQPublisher(url, queue string, logger *slog.Logger) service.MailPublisher {
	return &rabbitMQPublisher{
		url:    url,
		queue:  queue,
		logger: logger,
	}
}

func (p *rabbitMQPublisher) Publish(ctx context.Context, msg *entity.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     uuid.NewString(),
		CorrelationId: msg.RequestID,
		Body:          body,
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.resetLocked()

		return errors.Wrap(err, "failed to publish mail message")
	}

	p.logger.Debug("[RabbitMQ] Mail published",
		slog.String("queue", p.queue),
		slog.String("message_id", pub.MessageId),
	)

	return nil
}

// channel returns an open channel, dialling and declaring the queue when needed. Caller holds mu.
func (p *rabbitMQPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, errors.Wrap(err, "failed to open rabbitmq channel")
	}

	if _, err := DeclareMailQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, err
	}

	p.conn = conn
	p.ch = ch

	return ch, nil
}

func (p *rabbitMQPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close closes the broker connection.
func (p *rabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()

	return nil
}

// DeadLetterQueue names the queue that receives rejected mail messages.
func DeadLetterQueue(queue string) string {
	return queue + ".dead"
}

// DeclareMailQueue declares the durable mail queue and its dead-letter queue;
// publisher and consumer share it.
func DeclareMailQueue(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	dead := DeadLetterQueue(queue)
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, errors.Wrapf(err, "failed to declare queue %s", dead)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dead,
		},
	)
	if err != nil {
		return amqp.Queue{}, errors.Wrapf(err, "failed to declare queue %s", queue)
	}

	return q, nil
}
