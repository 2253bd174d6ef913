package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// requestTimeout bounds the storage calls of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// principal returns the guard-resolved user. Routes without a guard get
// InvalidCredentials instead of a zero user.
func principal(c echo.Context) (model.User, error) {
	u, ok := middleware.Principal(c)
	if !ok {
		return model.User{}, apperror.InvalidCredentials("missing credentials")
	}
	return u, nil
}

func currentSession(c echo.Context) (model.Session, error) {
	s, ok := middleware.CurrentSession(c)
	if !ok {
		return model.Session{}, apperror.InvalidCredentials("missing credentials")
	}
	return s, nil
}

// queryInt reads a positive integer query parameter, falling back to def
// when it is absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(apperror.FieldError{Field: name, Message: name + " must be an integer"})
	}
	return n, nil
}

// bind decodes the request body and validates it with the echo validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.BadRequest("malformed request body")
	}
	return c.Validate(dst)
}
