// Package queue defines the auth event payloads exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import "time"

// Queue carrying every auth event.
const AuthEventsQueue = "auth.events"

// Event types.
const (
	EventLogin                    = "session.login"
	EventSessionsRevoked          = "session.revoked_all"
	EventRoleUpgraded             = "role.upgraded"
	EventPasswordRestoreRequested = "password.restore_requested"
	EventPasswordChanged          = "password.changed"
	EventAccountDeleted           = "account.deleted"
)

// AuthEvent is published after identity state changes. It carries enough
// for the consumer to notify or audit without querying the database.
type AuthEvent struct {
	Type        string     `json:"type"`
	UserID      string     `json:"user_id"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name,omitempty"`
	Role        string     `json:"role,omitempty"`
	TokenID     string     `json:"token_id,omitempty"`
	IP          string     `json:"ip,omitempty"`
	RestoreCode string     `json:"restore_code,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
