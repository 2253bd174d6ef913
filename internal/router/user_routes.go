package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// RegisterUsers registers account, upgrade redemption and driver routes.
// Guards are attached per route: a guarded group would also guard the
// group's not-found fallback and answer 401 for unknown paths.
func RegisterUsers(e *echo.Echo, d Deps) {
	u, up := d.Users, d.Upgrades
	authed := d.Guard.RequireUser()

	g := e.Group("/v1")
	g.POST("/user", u.Register)
	g.GET("/user", u.Me, authed)
	g.DELETE("/user", u.Delete, authed)
	g.GET("/user/getusers", u.List, d.Guard.RequireRoleOrHigher(model.RoleDriver))

	g.GET("/upgradetoken/:id", up.Inspect, authed)
	g.POST("/upgradetoken/:id", up.Redeem, authed)

	driverOnly := d.Guard.RequireExactRole(model.RoleDriver)
	g.GET("/driver", u.Driver, driverOnly)
	g.PATCH("/driver/update", u.UpdateDriver, driverOnly)
}
