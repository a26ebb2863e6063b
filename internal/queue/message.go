// Package queue carries domain notifications over RabbitMQ.  The Publisher
// is a service.Notifier; the Consumer drains the queue into the SQL inbox.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/service"
)

// DefaultQueue is the durable queue notifications are routed to.
const DefaultQueue = "volunteer.notifications"

// NotificationMessage is the JSON body of one queued notification.
type NotificationMessage struct {
	ID          string                 `json:"id"`
	RecipientID uint64                 `json:"recipient_id"`
	Kind        model.NotificationKind `json:"kind"`
	Payload     service.Payload        `json:"payload"`
	PublishedAt time.Time              `json:"published_at"`
}

func (m NotificationMessage) validate() error {
	if m.RecipientID == 0 {
		return errors.New("recipient_id is required")
	}
	if m.Kind == "" {
		return errors.New("kind is required")
	}
	return nil
}

// newMessage stamps a fresh message id and publish time.
func newMessage(recipientID uint64, kind model.NotificationKind, p service.Payload, now time.Time) NotificationMessage {
	return NotificationMessage{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     p,
		PublishedAt: now.UTC(),
	}
}

// publishing wraps m in a persistent AMQP message.
func publishing(m NotificationMessage) (amqp.Publishing, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal notification: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.ID,
		Type:         string(m.Kind),
		Timestamp:    m.PublishedAt,
		Body:         body,
	}, nil
}

func decode(body []byte) (NotificationMessage, error) {
	var m NotificationMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return NotificationMessage{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := m.validate(); err != nil {
		return NotificationMessage{}, err
	}
	return m, nil
}
