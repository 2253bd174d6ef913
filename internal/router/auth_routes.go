package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
)

// RegisterAuth registers the /v1/token endpoints. Login and the password
// restore pair are rate limited per client.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log)
	a := d.Auth

	g := e.Group("/v1/token")
	g.POST("", a.Login, limit)
	g.POST("/refresh-token", a.Refresh)
	g.POST("/send-restore-password", a.SendRestore, limit)
	g.POST("/restore-password", a.Restore, limit)

	g.POST("/logout", a.Logout, d.Guard.RequireUser())
	g.GET("/sessions", a.ListSessions, d.Guard.RequireUser())
	g.POST("/revoke", a.Revoke, d.Guard.RequireUser())
}
