package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// RequireUser admits any authenticated user.
func (g *Guard) RequireUser() echo.MiddlewareFunc {
	return g.require(func(model.Role) bool { return true })
}

// RequireExactRole admits only users holding exactly role.
func (g *Guard) RequireExactRole(role model.Role) echo.MiddlewareFunc {
	return g.require(func(r model.Role) bool { return r == role })
}

// RequireRoleOrHigher admits users whose role is role or above it in
// USER < DRIVER < MANAGER.
func (g *Guard) RequireRoleOrHigher(role model.Role) echo.MiddlewareFunc {
	return g.require(func(r model.Role) bool { return r.AtLeast(role) })
}

func (g *Guard) require(allowed func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := g.authenticate(c); err != nil {
				return err
			}
			if u, _ := Principal(c); !allowed(u.Role) {
				return apperror.Forbidden("insufficient role")
			}
			return next(c)
		}
	}
}
