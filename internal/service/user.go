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

const maxPageSize = 50

// RegisterInput is a sign-up request after decoding.
type RegisterInput struct {
	Name       string `json:"nome" validate:"required,min=3,max=120"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"telefone" validate:"required,numeric,min=10,max=13"`
	NationalID string `json:"cpf" validate:"required,numeric,len=11"`
	Password   string `json:"senha" validate:"required,min=8,max=72"`
	BirthDate  string `json:"data_nascimento" validate:"required,datetime=2006-01-02"`
}

// DriverUpdate is a partial update of the caller's driver record. Nil
// fields stay as they are; an empty id_ambulancia unassigns the vehicle.
type DriverUpdate struct {
	AmbulanceID   *string `json:"id_ambulancia"`
	LicenseExpiry *string `json:"vencimento" validate:"omitempty,datetime=2006-01-02"`
}

// UserService manages accounts.
type UserService struct {
	users      UserStore
	drivers    DriverStore
	ambulances AmbulanceStore
	sessions   *SessionService
	validate   *validation.Validator
	bcryptCost int
	events     EventPublisher
	log        *zerolog.Logger
	now        func() time.Time
}

func NewUserService(users UserStore, drivers DriverStore, ambulances AmbulanceStore, sessions *SessionService, v *validation.Validator, bcryptCost int, events EventPublisher, log *zerolog.Logger) *UserService {
	return &UserService{
		users:      users,
		drivers:    drivers,
		ambulances: ambulances,
		sessions:   sessions,
		validate:   v,
		bcryptCost: bcryptCost,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// Register creates a USER account. Every invalid or already used field is
// reported in one validation error.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = utils.OnlyDigits(in.Phone)
	in.NationalID = utils.OnlyDigits(in.NationalID)

	fields := s.validate.Fields(in)
	birth, err := time.Parse(time.DateOnly, in.BirthDate)
	if err == nil && !birth.Before(s.now()) {
		fields = append(fields, apperror.FieldError{Field: "data_nascimento", Message: "data_nascimento must be in the past"})
	}

	emailTaken, phoneTaken, idTaken, err := s.users.Taken(ctx, in.Email, in.Phone, in.NationalID)
	if err != nil {
		return model.User{}, apperror.Internal(fmt.Errorf("check uniqueness: %w", err))
	}
	if emailTaken {
		fields = append(fields, apperror.FieldError{Field: "email", Message: "email already registered"})
	}
	if phoneTaken {
		fields = append(fields, apperror.FieldError{Field: "telefone", Message: "phone already registered"})
	}
	if idTaken {
		fields = append(fields, apperror.FieldError{Field: "cpf", Message: "cpf already registered"})
	}
	if len(fields) > 0 {
		return model.User{}, apperror.Validation(fields...)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, apperror.Internal(err)
	}
	u := model.User{
		ID:           utils.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		NationalID:   in.NationalID,
		PasswordHash: hash,
		BirthDate:    birth,
		Role:         model.RoleUser,
		CreatedAt:    s.now().UTC(),
	}

	// a concurrent sign-up can still win the unique index
	switch err := s.users.Create(ctx, u); {
	case err == nil:
	case errors.Is(err, repository.ErrEmailExists):
		return model.User{}, apperror.Validation(apperror.FieldError{Field: "email", Message: "email already registered"})
	case errors.Is(err, repository.ErrPhoneExists):
		return model.User{}, apperror.Validation(apperror.FieldError{Field: "telefone", Message: "phone already registered"})
	case errors.Is(err, repository.ErrNationalIDExists):
		return model.User{}, apperror.Validation(apperror.FieldError{Field: "cpf", Message: "cpf already registered"})
	default:
		return model.User{}, apperror.Internal(fmt.Errorf("create user: %w", err))
	}
	return u, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperror.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, apperror.Internal(err)
	}
	return u, nil
}

// List returns one page of users. page starts at 1.
func (s *UserService) List(ctx context.Context, page, pageSize int) ([]model.User, error) {
	if page < 1 || pageSize < 1 || pageSize > maxPageSize {
		return nil, apperror.BadRequest(fmt.Sprintf("page must be >= 1 and page size between 1 and %d", maxPageSize))
	}
	users, err := s.users.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Driver returns the driver record of a DRIVER user.
func (s *UserService) Driver(ctx context.Context, userID string) (model.Driver, error) {
	d, err := s.drivers.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Driver{}, apperror.NotFound("driver record not found")
	}
	if err != nil {
		return model.Driver{}, apperror.Internal(err)
	}
	return d, nil
}

// UpdateDriver lets a driver reassign their vehicle or renew the license
// expiry date.
func (s *UserService) UpdateDriver(ctx context.Context, userID string, in DriverUpdate) (model.Driver, error) {
	if fields := s.validate.Fields(in); len(fields) > 0 {
		return model.Driver{}, apperror.Validation(fields...)
	}
	d, err := s.Driver(ctx, userID)
	if err != nil {
		return model.Driver{}, err
	}

	if in.AmbulanceID != nil {
		id := strings.TrimSpace(*in.AmbulanceID)
		if id == "" {
			d.AmbulanceID = nil
		} else {
			ok, err := s.ambulances.Exists(ctx, id)
			if err != nil {
				return model.Driver{}, apperror.Internal(fmt.Errorf("check ambulance: %w", err))
			}
			if !ok {
				return model.Driver{}, apperror.NotFound("ambulance not found")
			}
			d.AmbulanceID = &id
		}
	}
	if in.LicenseExpiry != nil {
		expiry, err := time.Parse(time.DateOnly, *in.LicenseExpiry)
		if err != nil || !expiry.After(s.now()) {
			return model.Driver{}, apperror.Validation(apperror.FieldError{Field: "vencimento", Message: "vencimento must be a future date"})
		}
		d.LicenseExpiry = expiry
	}

	if err := s.drivers.Update(ctx, d); err != nil {
		return model.Driver{}, apperror.Internal(fmt.Errorf("update driver: %w", err))
	}
	return d, nil
}

// Delete removes the account after revoking every session it owns.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
		return err
	}
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("user not found")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("delete user: %w", err))
	}
	emit(s.events, s.log, queue.AuthEvent{Type: queue.EventAccountDeleted, UserID: id})
	return nil
}
