package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// AuthCookie carries the access credential. When present it wins over the
// Authorization header.
const AuthCookie = "Authorization"

// Resolver turns an access credential into its owner. *service.SessionService
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, token, ip string) (model.User, model.Session, error)
}

// Guard authenticates requests against the session store and enforces
// role requirements on top.
type Guard struct {
	sessions Resolver
}

func NewGuard(r Resolver) *Guard { return &Guard{sessions: r} }

// authenticate resolves the request's credential and stores the principal
// in the echo context.
func (g *Guard) authenticate(c echo.Context) error {
	raw := credential(c.Request())
	if raw == "" {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return apperror.InvalidCredentials("missing credentials")
	}
	u, sess, err := g.sessions.Resolve(c.Request().Context(), raw, c.RealIP())
	if err != nil {
		if apperror.Is(err, apperror.KindInvalidCredentials) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
		}
		return err
	}
	c.Set(principalKey, u)
	c.Set(sessionKey, sess)
	return nil
}

// credential reads the cookie first, then the bearer header.
func credential(r *http.Request) string {
	if ck, err := r.Cookie(AuthCookie); err == nil && ck.Value != "" {
		return stripBearer(ck.Value)
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func stripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}
