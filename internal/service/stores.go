// Package service holds the identity use cases: sessions, role upgrades,
// accounts and password restore. Services depend on the small store
// interfaces below; the repository package provides the MySQL and Redis
// implementations.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/queue"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, u model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Taken(ctx context.Context, email, phone, nationalID string) (emailTaken, phoneTaken, idTaken bool, err error)
	UpdatePassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

type SessionStore interface {
	Save(ctx context.Context, s model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, s model.Session) error
	ListForUser(ctx context.Context, userID string) ([]model.Session, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}

type UpgradeTokenStore interface {
	Create(ctx context.Context, t model.UpgradeToken) error
	GetByID(ctx context.Context, id string) (model.UpgradeToken, error)
	ListUnused(ctx context.Context, grant model.Role) ([]model.UpgradeToken, error)
	Promote(ctx context.Context, p repository.Promotion) error
}

type AmbulanceStore interface {
	Create(ctx context.Context, a model.Ambulance) error
	GetByID(ctx context.Context, id string) (model.Ambulance, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.Ambulance, error)
}

type DriverStore interface {
	GetByUserID(ctx context.Context, userID string) (model.Driver, error)
	Update(ctx context.Context, d model.Driver) error
}

type RestoreCodeStore interface {
	Replace(ctx context.Context, c model.RestoreCode) error
	Get(ctx context.Context, id string) (model.RestoreCode, error)
	Claim(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string) error
}

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// emit publishes an audit event off the request path. Failures are only
// logged: audit events never fail the operation that produced them.
func emit(pub EventPublisher, log *zerolog.Logger, ev queue.AuthEvent) {
	if pub == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", ev.Type).Msg("publish auth event")
		}
	}()
}
