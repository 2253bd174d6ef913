package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// RegisterManager registers MANAGER-only endpoints.
func RegisterManager(e *echo.Echo, d Deps) {
	e.POST("/v1/manager/upgrade-tokens", d.Upgrades.Issue, d.Guard.RequireExactRole(model.RoleManager))
}

// RegisterAmbulances registers the vehicle catalogue. Listing is cached in
// Redis behind the guard.
func RegisterAmbulances(e *echo.Echo, d Deps) {
	a := d.Ambulances
	cache := middleware.NewRedisCache(d.Cfg.Cache, d.Redis, d.Log)

	g := e.Group("/v1/ambulances")
	g.GET("", a.List, d.Guard.RequireRoleOrHigher(model.RoleDriver), cache)
	g.GET("/:id", a.Get, d.Guard.RequireRoleOrHigher(model.RoleDriver))
	g.POST("", a.Create, d.Guard.RequireExactRole(model.RoleManager))
}
