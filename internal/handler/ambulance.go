package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/service"
)

type AmbulanceHandler struct {
	Ambulances *service.AmbulanceService
}

func NewAmbulanceHandler(a *service.AmbulanceService) *AmbulanceHandler {
	return &AmbulanceHandler{Ambulances: a}
}

// Create: POST /v1/ambulances
func (h *AmbulanceHandler) Create(c echo.Context) error {
	var req service.AmbulanceInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Ambulances.Create(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

// Get: GET /v1/ambulances/:id
func (h *AmbulanceHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Ambulances.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// List: GET /v1/ambulances
func (h *AmbulanceHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Ambulances.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
