package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health reports whether MySQL and Redis answer. Sessions live in Redis, so
// without it no request can authenticate and the service reports 503.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"mysql": "ok", "redis": "ok"}
		code := http.StatusOK
		if db == nil || db.PingContext(ctx) != nil {
			status["mysql"] = "down"
			code = http.StatusServiceUnavailable
		}
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			status["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, status)
	}
}
