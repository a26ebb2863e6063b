package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/service"
)

const (
	dialTimeout      = 3 * time.Second
	reconnectBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while the publisher is
// backing off after a failed connection attempt.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable, backing off")

// Publisher sends notifications to a durable RabbitMQ queue.  The connection
// is opened on first use and re-opened after a failed publish.  A failed
// dial blocks further dials for reconnectBackoff so a dead broker costs
// callers at most one dialTimeout per window.
type Publisher struct {
	url         string
	queue       string
	log         *slog.Logger
	now         func() time.Time
	dialTimeout time.Duration
	backoff     time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

var _ service.Notifier = (*Publisher)(nil)

// NewPublisher returns a Publisher for queue on the broker at url.
func NewPublisher(url, queue string, log *slog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{
		url:         url,
		queue:       queue,
		log:         log,
		now:         time.Now,
		dialTimeout: dialTimeout,
		backoff:     reconnectBackoff,
	}
}

// Notify publishes one notification.  Errors are returned to the caller,
// which treats delivery as best effort.
func (p *Publisher) Notify(ctx context.Context, recipientID uint64, kind model.NotificationKind, payload service.Payload) error {
	msg := newMessage(recipientID, kind, payload, p.now())
	pub, err := publishing(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.closeLocked()
		return fmt.Errorf("publish notification %s: %w", msg.ID, err)
	}
	p.log.DebugContext(ctx, "notification published", "message_id", msg.ID, "kind", kind, "recipient_id", recipientID)
	return nil
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	if p.now().Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		p.retryAt = p.now().Add(p.backoff)
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

// declare makes sure the durable queue exists.
func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return nil
}
