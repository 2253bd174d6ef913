package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/mailer"
)

// Sender delivers an email. *mailer.Mailer satisfies it.
type Sender interface {
	Send(email mailer.Email) error
}

// EventHandler reacts to auth events: restore requests become emails,
// everything else becomes an audit log line.
type EventHandler struct {
	Mail       Sender
	RestoreURL string
	Log        *zerolog.Logger
}

// Handle processes one message body. A returned error rejects the message.
func (h *EventHandler) Handle(body []byte) error {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	h.Log.Info().
		Str("event", ev.Type).
		Str("user_id", ev.UserID).
		Str("role", ev.Role).
		Str("token_id", ev.TokenID).
		Str("ip", ev.IP).
		Time("occurred_at", ev.OccurredAt).
		Msg("auth event")

	if ev.Type != EventPasswordRestoreRequested {
		return nil
	}
	if ev.Email == "" || ev.RestoreCode == "" || ev.ValidUntil == nil {
		return errors.New("restore event without email, code or validity")
	}
	if h.Mail == nil {
		return errors.New("no mailer configured")
	}
	email, err := mailer.RestorePasswordEmail(ev.Email, ev.Name, h.RestoreURL, ev.RestoreCode, *ev.ValidUntil)
	if err != nil {
		return fmt.Errorf("render restore email: %w", err)
	}
	if err := h.Mail.Send(email); err != nil {
		return fmt.Errorf("send restore email: %w", err)
	}
	return nil
}

// StartAuthEventConsumer connects to RabbitMQ, declares the auth events
// queue (durable) and hands each message to h. It reconnects with backoff
// until ctx is cancelled, then returns ctx.Err().
func StartAuthEventConsumer(ctx context.Context, url string, h *EventHandler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			h.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("auth-consumer: failed to dial broker")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.Log.Warn().Err(err).Msg("auth-consumer: consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, h *EventHandler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		h.Log.Warn().Err(err).Msg("auth-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(AuthEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AuthEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := h.Handle(d.Body); err != nil {
				h.Log.Error().Err(err).Msg("auth-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
