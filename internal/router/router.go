// Package router wires handlers, guards and the Redis-backed middleware
// onto an echo instance.
package router

import (
	"database/sql"
	"net"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/config"
	"github.com/iliyamo/ambulance-fleet-api/internal/handler"
	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
	"github.com/iliyamo/ambulance-fleet-api/internal/validation"
)

// Deps is everything the routes need. main builds it once.
type Deps struct {
	Cfg   config.Config
	Log   *zerolog.Logger
	DB    *sql.DB
	Redis *redis.Client
	Guard *middleware.Guard

	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Upgrades   *handler.UpgradeHandler
	Ambulances *handler.AmbulanceHandler
}

// New returns an echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)
	e.IPExtractor = ipExtractor(d.Cfg)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterUsers(e, d)
	RegisterManager(e, d)
	RegisterAmbulances(e, d)
	return e
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB, d.Redis))
}

// ipExtractor decides where c.RealIP comes from. Sessions are bound to that
// address, so forwarding headers are only read from configured proxies.
func ipExtractor(cfg config.Config) echo.IPExtractor {
	ranges, _ := cfg.ProxyRanges()
	if len(ranges) == 0 {
		return echo.ExtractIPDirect()
	}
	return echo.ExtractIPFromXFFHeader(trustOptions(ranges)...)
}

func trustOptions(ranges []*net.IPNet) []echo.TrustOption {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range ranges {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return opts
}
