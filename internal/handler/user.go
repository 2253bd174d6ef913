package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/service"
)

// UserHandler serves account endpoints.
type UserHandler struct {
	Users   *service.UserService
	cookies cookieJar
}

func NewUserHandler(users *service.UserService, dev bool) *UserHandler {
	return &UserHandler{Users: users, cookies: cookieJar{dev: dev}}
}

// Register: POST /v1/user. Validation happens in the service so uniqueness
// violations are reported together with format errors.
func (h *UserHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("malformed request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Register(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// Me: GET /v1/user
func (h *UserHandler) Me(c echo.Context) error {
	u, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Delete: DELETE /v1/user removes the caller's own account.
func (h *UserHandler) Delete(c echo.Context) error {
	u, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, u.ID); err != nil {
		return err
	}
	h.cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}

// List: GET /v1/user/getusers?page=1&page_size=20
func (h *UserHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size", 20)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"page": page, "page_size": size, "items": users})
}

// Driver: GET /v1/driver returns the caller's driver record.
// UpdateDriver: PATCH /v1/driver/update
func (h *UserHandler) UpdateDriver(c echo.Context) error {
	u, err := principal(c)
	if err != nil {
		return err
	}
	var in service.DriverUpdate
	if err := c.Bind(&in); err != nil {
		return apperror.BadRequest("malformed request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Users.UpdateDriver(ctx, u.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *UserHandler) Driver(c echo.Context) error {
	u, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Users.Driver(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}
