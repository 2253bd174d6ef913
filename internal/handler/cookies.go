package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
	"github.com/iliyamo/ambulance-fleet-api/internal/service"
)

const refreshCookie = "refreshToken"

// cookieJar sets the session cookies. Outside development they are Secure
// and SameSite=None so the web app on another origin can send them.
type cookieJar struct {
	dev bool
}

func (j cookieJar) set(c echo.Context, name string, cred service.Credential) {
	c.SetCookie(j.cookie(name, cred.Token, cred.ExpiresAt()))
}

// clear expires both session cookies.
func (j cookieJar) clear(c echo.Context) {
	for _, name := range []string{middleware.AuthCookie, refreshCookie} {
		ck := j.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (j cookieJar) cookie(name, value string, expires time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !j.dev,
		SameSite: http.SameSiteNoneMode,
	}
	if j.dev {
		ck.SameSite = http.SameSiteLaxMode
	}
	return ck
}
