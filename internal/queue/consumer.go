package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/volunteerconnect/event-registration/internal/service"
)

const (
	prefetch   = 50
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Consumer drains the notification queue into sink, normally the SQL inbox.
type Consumer struct {
	url   string
	queue string
	sink  service.Notifier
	log   *slog.Logger
}

// NewConsumer returns a Consumer reading queue on the broker at url.
func NewConsumer(url, queue string, sink service.Notifier, log *slog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Consumer{url: url, queue: queue, sink: sink, log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WarnContext(ctx, "notification consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WarnContext(ctx, "notification consumer: consume loop ended; reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.log.WarnContext(ctx, "notification consumer: set QoS failed", "error", err)
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.InfoContext(ctx, "notification consumer started", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.log.ErrorContext(ctx, "notification consumer: handle message failed",
					"message_id", d.MessageId, "error", err)
				_ = d.Nack(false, false) // reject without requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and hands it to the sink.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	msg, err := decode(body)
	if err != nil {
		return err
	}
	if err := c.sink.Notify(ctx, msg.RecipientID, msg.Kind, msg.Payload); err != nil {
		return fmt.Errorf("store notification %s: %w", msg.ID, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
