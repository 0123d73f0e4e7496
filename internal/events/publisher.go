// Package events publishes booking events to RabbitMQ for downstream
// consumers (notifications, invoicing).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SessionsBooked is published once per committed batch.
type SessionsBooked struct {
	ClientID      string   `json:"client_id"`
	UserID        string   `json:"user_id"`
	SessionTypeID string   `json:"session_type_id"`
	SessionIDs    []string `json:"session_ids"`
	Message       string   `json:"message,omitempty"`
	BookedAt      string   `json:"booked_at"`
}

type Publisher interface {
	PublishSessionsBooked(ctx context.Context, event SessionsBooked) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishSessionsBooked(context.Context, SessionsBooked) error { return nil }

const defaultDialTimeout = 2 * time.Second

type RabbitPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitPublisher(url, queue string, dialTimeout time.Duration) *RabbitPublisher {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	return &RabbitPublisher{url: url, queue: queue, dialTimeout: dialTimeout}
}

func (p *RabbitPublisher) PublishSessionsBooked(ctx context.Context, event SessionsBooked) error {
	const op = "events.RabbitPublisher.PublishSessionsBooked"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("%s: queue declare: %w", op, err)
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: publish: %w", op, err)
	}

	return nil
}

// channel opens a channel on the shared connection, redialing when the
// previous connection was closed by the broker. The dial gives up at the
// earlier of dialTimeout and the ctx deadline.
func (p *RabbitPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.conn == nil || p.conn.IsClosed() {
		timeout := p.dialTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < timeout {
				timeout = left
			}
		}
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}

		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(timeout),
		})
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}

	return ch, nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}

	return p.conn.Close()
}
