package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/queue"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/utils"
)

const minPasswordLen = 8

// PasswordService handles forgotten passwords.
type PasswordService struct {
	users      UserStore
	codes      RestoreCodeStore
	sessions   *SessionService
	events     EventPublisher
	codeTTL    time.Duration
	bcryptCost int
	log        *zerolog.Logger
	now        func() time.Time
}

func NewPasswordService(users UserStore, codes RestoreCodeStore, sessions *SessionService, events EventPublisher, codeTTL time.Duration, bcryptCost int, log *zerolog.Logger) *PasswordService {
	return &PasswordService{
		users:      users,
		codes:      codes,
		sessions:   sessions,
		events:     events,
		codeTTL:    codeTTL,
		bcryptCost: bcryptCost,
		log:        log,
		now:        time.Now,
	}
}

// RequestRestore creates a restore code and queues the email carrying it.
// Unknown emails succeed silently so the endpoint cannot be used to probe
// for accounts.
func (s *PasswordService) RequestRestore(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.Validation(apperror.FieldError{Field: "userEmail", Message: "userEmail is a required field"})
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("load user: %w", err))
	}

	now := s.now().UTC()
	code := model.RestoreCode{
		ID:         utils.NewID(),
		UserID:     u.ID,
		ValidUntil: now.Add(s.codeTTL),
		CreatedAt:  now,
	}
	if err := s.codes.Replace(ctx, code); err != nil {
		return apperror.Internal(fmt.Errorf("store restore code: %w", err))
	}

	// the email is the only way to deliver the code, so this publish is not best effort
	if s.events == nil {
		return apperror.Internal(errors.New("no event publisher configured"))
	}
	err = s.events.Publish(ctx, queue.AuthEvent{
		Type:        queue.EventPasswordRestoreRequested,
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		RestoreCode: code.ID,
		ValidUntil:  &code.ValidUntil,
		OccurredAt:  now,
	})
	if err != nil {
		return apperror.Internal(fmt.Errorf("queue restore email: %w", err))
	}
	return nil
}

// Restore sets a new password using a restore code, then drops every
// pending code and every session of the user.
func (s *PasswordService) Restore(ctx context.Context, codeID, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return apperror.Validation(apperror.FieldError{
			Field:   "newPassword",
			Message: fmt.Sprintf("newPassword must be at least %d characters in length", minPasswordLen),
		})
	}
	code, err := s.codes.Get(ctx, strings.TrimSpace(codeID))
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.InvalidCredentials("invalid restore code")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("load restore code: %w", err))
	}
	if !code.ValidUntil.After(s.now()) {
		return apperror.InvalidCredentials("restore code expired")
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	// only the caller that deletes the code may use it
	if err := s.codes.Claim(ctx, code.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.InvalidCredentials("invalid restore code")
		}
		return apperror.Internal(fmt.Errorf("claim restore code: %w", err))
	}
	if err := s.users.UpdatePassword(ctx, code.UserID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.InvalidCredentials("invalid restore code")
		}
		return apperror.Internal(fmt.Errorf("update password: %w", err))
	}
	if err := s.codes.DeleteForUser(ctx, code.UserID); err != nil {
		return apperror.Internal(fmt.Errorf("delete restore codes: %w", err))
	}
	if err := s.sessions.RevokeAllForUser(ctx, code.UserID); err != nil {
		return err
	}
	emit(s.events, s.log, queue.AuthEvent{Type: queue.EventPasswordChanged, UserID: code.UserID})
	return nil
}
