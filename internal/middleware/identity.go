package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

const (
	principalKey = "principal"
	sessionKey   = "session"
)

// Principal returns the user the guard resolved for this request.
func Principal(c echo.Context) (model.User, bool) {
	u, ok := c.Get(principalKey).(model.User)
	return u, ok
}

// CurrentSession returns the access session the request authenticated with.
func CurrentSession(c echo.Context) (model.Session, bool) {
	s, ok := c.Get(sessionKey).(model.Session)
	return s, ok
}

// currentUserID is the principal's id, or "anon" on unguarded routes.
func currentUserID(c echo.Context) string {
	if u, ok := Principal(c); ok && u.ID != "" {
		return u.ID
	}
	return "anon"
}
