package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends auth events to RabbitMQ. It dials per publish: events are
// rare (logins, upgrades, password resets) and a fresh connection avoids
// managing a long-lived channel across broker restarts.
type Publisher struct {
	url string
	log *zerolog.Logger
}

func NewPublisher(url string, log *zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Publish sends ev to the auth events queue as a persistent message. Errors
// are logged and returned so the caller can decide whether they matter.
func (p *Publisher) Publish(ctx context.Context, ev AuthEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(AuthEventsQueue, true, false, false, false, nil); err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", AuthEventsQueue, false, false, pub); err != nil {
		p.log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq publish failed")
		return err
	}
	return nil
}
