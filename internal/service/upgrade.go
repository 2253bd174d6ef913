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
	"github.com/iliyamo/ambulance-fleet-api/internal/validation"
)

// DriverFields are the extra details a DRIVER upgrade needs, as sent by the
// client. AmbulanceID is optional; when set it must name a registered
// vehicle. They are only looked at when the token grants DRIVER.
type DriverFields struct {
	AmbulanceID   string `json:"id_ambulancia"`
	LicenseNumber string `json:"cnh" form:"cnh" validate:"required,numeric,len=11"`
	LicenseExpiry string `json:"vencimento" form:"vencimento" validate:"required,datetime=2006-01-02"`
}

// UpgradeService runs the one-time upgrade token protocol.
type UpgradeService struct {
	tokens     UpgradeTokenStore
	ambulances AmbulanceStore
	validate   *validation.Validator
	events     EventPublisher
	log        *zerolog.Logger
	now        func() time.Time
}

func NewUpgradeService(tokens UpgradeTokenStore, ambulances AmbulanceStore, v *validation.Validator, events EventPublisher, log *zerolog.Logger) *UpgradeService {
	return &UpgradeService{tokens: tokens, ambulances: ambulances, validate: v, events: events, log: log, now: time.Now}
}

// Redeem promotes acting to the token's role. Preconditions are checked in
// order (token state, role-specific fields, redundant promotion) before
// anything is written; the write itself is one transaction that only
// succeeds for the first redeemer.
func (s *UpgradeService) Redeem(ctx context.Context, acting model.User, tokenID string, fields *DriverFields) (model.User, error) {
	tok, err := s.tokens.GetByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperror.InvalidCredentials("invalid upgrade token")
	}
	if err != nil {
		return model.User{}, apperror.Internal(fmt.Errorf("load upgrade token: %w", err))
	}
	if tok.Used {
		return model.User{}, apperror.InvalidCredentials("token already used")
	}

	now := s.now().UTC()
	var driver *model.Driver
	if tok.Grant == model.RoleDriver {
		if fields == nil {
			return model.User{}, apperror.Forbidden("driver details are required for this token")
		}
		driver, err = s.driverRecord(ctx, acting.ID, *fields, now)
		if err != nil {
			return model.User{}, err
		}
	}

	if acting.Role.AtLeast(tok.Grant) {
		return model.User{}, apperror.Conflict("user already holds this role")
	}

	err = s.tokens.Promote(ctx, repository.Promotion{
		TokenID: tok.ID,
		UserID:  acting.ID,
		Grant:   tok.Grant,
		Driver:  driver,
		At:      now,
	})
	if errors.Is(err, repository.ErrTokenUsed) {
		return model.User{}, apperror.InvalidCredentials("token already used")
	}
	if err != nil {
		return model.User{}, apperror.Internal(fmt.Errorf("promote user: %w", err))
	}

	acting.Role = tok.Grant
	emit(s.events, s.log, queue.AuthEvent{
		Type:    queue.EventRoleUpgraded,
		UserID:  acting.ID,
		Email:   acting.Email,
		Role:    tok.Grant.String(),
		TokenID: tok.ID,
	})
	return acting, nil
}

// driverRecord checks the vehicle first, then the license details.
func (s *UpgradeService) driverRecord(ctx context.Context, userID string, f DriverFields, now time.Time) (*model.Driver, error) {
	f.AmbulanceID = strings.TrimSpace(f.AmbulanceID)
	f.LicenseNumber = strings.TrimSpace(f.LicenseNumber)
	f.LicenseExpiry = strings.TrimSpace(f.LicenseExpiry)

	d := &model.Driver{UserID: userID, LicenseNumber: f.LicenseNumber, CreatedAt: now}
	if f.AmbulanceID != "" {
		ok, err := s.ambulances.Exists(ctx, f.AmbulanceID)
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("check ambulance: %w", err))
		}
		if !ok {
			return nil, apperror.NotFound("ambulance not found")
		}
		id := f.AmbulanceID
		d.AmbulanceID = &id
	}

	if fields := s.validate.Fields(f); len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}
	expiry, err := time.Parse(time.DateOnly, f.LicenseExpiry)
	if err != nil {
		return nil, apperror.Validation(apperror.FieldError{Field: "vencimento", Message: "vencimento must be a date (YYYY-MM-DD)"})
	}
	d.LicenseExpiry = expiry
	return d, nil
}

// Issue mints an unused token. Only managers may call it; the route guard
// enforces that, the check here keeps the service safe on its own.
func (s *UpgradeService) Issue(ctx context.Context, manager model.User, grant model.Role) (model.UpgradeToken, error) {
	if manager.Role != model.RoleManager {
		return model.UpgradeToken{}, apperror.Forbidden("only managers can issue upgrade tokens")
	}
	if grant != model.RoleDriver && grant != model.RoleManager {
		return model.UpgradeToken{}, apperror.BadRequest("tokens can only grant DRIVER or MANAGER")
	}
	createdBy := manager.ID
	return s.create(ctx, grant, &createdBy)
}

// Inspect returns a token so a user can see what it grants before redeeming.
func (s *UpgradeService) Inspect(ctx context.Context, tokenID string) (model.UpgradeToken, error) {
	tok, err := s.tokens.GetByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.UpgradeToken{}, apperror.InvalidCredentials("invalid upgrade token")
	}
	if err != nil {
		return model.UpgradeToken{}, apperror.Internal(fmt.Errorf("load upgrade token: %w", err))
	}
	return tok, nil
}

// EnsureBootstrapTokens makes sure at least n unused MANAGER tokens exist
// and returns all of them. It seeds the first manager of a fresh install.
func (s *UpgradeService) EnsureBootstrapTokens(ctx context.Context, n int) ([]model.UpgradeToken, error) {
	existing, err := s.tokens.ListUnused(ctx, model.RoleManager)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list manager tokens: %w", err))
	}
	for len(existing) < n {
		tok, err := s.create(ctx, model.RoleManager, nil)
		if err != nil {
			return nil, err
		}
		existing = append(existing, tok)
	}
	return existing, nil
}

func (s *UpgradeService) create(ctx context.Context, grant model.Role, createdBy *string) (model.UpgradeToken, error) {
	tok := model.UpgradeToken{
		ID:        utils.NewID(),
		Grant:     grant,
		CreatedBy: createdBy,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return model.UpgradeToken{}, apperror.Internal(fmt.Errorf("create upgrade token: %w", err))
	}
	return tok, nil
}
