package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/utils"
)

// AmbulanceInput registers a vehicle.
type AmbulanceInput struct {
	Plate          string `json:"placa" validate:"required,min=7,max=8"`
	Model          string `json:"modelo" validate:"required,max=80"`
	Year           int    `json:"ano" validate:"required,gte=1980,lte=2100"`
	DocumentNumber string `json:"renavam" validate:"required,numeric,min=9,max=11"`
}

// AmbulanceService is the minimal vehicle catalogue driver upgrades point at.
type AmbulanceService struct {
	ambulances AmbulanceStore
	now        func() time.Time
}

func NewAmbulanceService(ambulances AmbulanceStore) *AmbulanceService {
	return &AmbulanceService{ambulances: ambulances, now: time.Now}
}

func (s *AmbulanceService) Create(ctx context.Context, in AmbulanceInput) (model.Ambulance, error) {
	a := model.Ambulance{
		ID:             utils.NewID(),
		Plate:          strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.Plate), "-", "")),
		Model:          strings.TrimSpace(in.Model),
		Year:           in.Year,
		DocumentNumber: in.DocumentNumber,
		CreatedAt:      s.now().UTC(),
	}
	err := s.ambulances.Create(ctx, a)
	if errors.Is(err, repository.ErrConflict) {
		return model.Ambulance{}, apperror.Conflict("plate already registered")
	}
	if err != nil {
		return model.Ambulance{}, apperror.Internal(err)
	}
	return a, nil
}

func (s *AmbulanceService) Get(ctx context.Context, id string) (model.Ambulance, error) {
	a, err := s.ambulances.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Ambulance{}, apperror.NotFound("ambulance not found")
	}
	if err != nil {
		return model.Ambulance{}, apperror.Internal(err)
	}
	return a, nil
}

func (s *AmbulanceService) List(ctx context.Context) ([]model.Ambulance, error) {
	list, err := s.ambulances.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if list == nil {
		list = []model.Ambulance{}
	}
	return list, nil
}
