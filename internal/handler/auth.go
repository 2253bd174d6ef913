package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
	"github.com/iliyamo/ambulance-fleet-api/internal/service"
)

// AuthHandler serves the /token endpoints.
type AuthHandler struct {
	Sessions  *service.SessionService
	Passwords *service.PasswordService
	cookies   cookieJar
}

func NewAuthHandler(sessions *service.SessionService, passwords *service.PasswordService, dev bool) *AuthHandler {
	return &AuthHandler{Sessions: sessions, Passwords: passwords, cookies: cookieJar{dev: dev}}
}

// ----- DTOs -----

// loginReq accepts the OAuth2 password form (username) as well as JSON.
type loginReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type revokeReq struct {
	SessionID string `json:"id_sessao" validate:"required"`
}

type sendRestoreReq struct {
	Email string `json:"userEmail" validate:"required,email"`
}

type restoreReq struct {
	Code        string `json:"restoreCode" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type sessionResp struct {
	ID         string    `json:"id"`
	IP         string    `json:"ip"`
	IsRefresh  bool      `json:"is_refresh"`
	Current    bool      `json:"atual"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}

func newTokenResp(cred service.Credential) tokenResp {
	return tokenResp{AccessToken: cred.Token, TokenType: "bearer", ExpiresAt: cred.ExpiresAt().UTC()}
}

// Login: POST /v1/token
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("malformed request body")
	}
	email := req.Email
	if strings.TrimSpace(email) == "" {
		email = req.Username
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Sessions.Login(ctx, email, req.Password, c.RealIP())
	if err != nil {
		return err
	}
	h.cookies.set(c, middleware.AuthCookie, res.Access)
	h.cookies.set(c, refreshCookie, res.Refresh)
	return c.JSON(http.StatusOK, newTokenResp(res.Access))
}

// Refresh: POST /v1/token/refresh-token
func (h *AuthHandler) Refresh(c echo.Context) error {
	var raw string
	if ck, err := c.Cookie(refreshCookie); err == nil && ck.Value != "" {
		raw = ck.Value
	} else {
		var req refreshReq
		if err := c.Bind(&req); err != nil {
			return apperror.BadRequest("malformed request body")
		}
		raw = strings.TrimSpace(req.RefreshToken)
	}
	if raw == "" {
		return apperror.InvalidCredentials("missing refresh token")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	cred, err := h.Sessions.Refresh(ctx, raw, c.RealIP())
	if err != nil {
		return err
	}
	h.cookies.set(c, middleware.AuthCookie, cred)
	return c.JSON(http.StatusOK, newTokenResp(cred))
}

// Logout: POST /v1/token/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var refresh string
	if ck, err := c.Cookie(refreshCookie); err == nil {
		refresh = ck.Value
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sessions.Logout(ctx, sess, refresh); err != nil {
		return err
	}
	h.cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}

// Sessions: GET /v1/token/sessions
func (h *AuthHandler) ListSessions(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Sessions.ListSessions(ctx, sess.UserID)
	if err != nil {
		return err
	}
	out := make([]sessionResp, 0, len(list))
	for _, s := range list {
		out = append(out, sessionResp{
			ID:         s.ID,
			IP:         s.IP,
			IsRefresh:  s.IsRefresh,
			Current:    s.ID == sess.ID,
			ValidUntil: s.ValidUntil.UTC(),
			CreatedAt:  s.CreatedAt.UTC(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Revoke: POST /v1/token/revoke
func (h *AuthHandler) Revoke(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req revokeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sessions.RevokeSession(ctx, sess, strings.TrimSpace(req.SessionID)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SendRestore: POST /v1/token/send-restore-password
func (h *AuthHandler) SendRestore(c echo.Context) error {
	var req sendRestoreReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Passwords.RequestRestore(ctx, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, echo.Map{"mensagem": "if the account exists, an email was sent"})
}

// Restore: POST /v1/token/restore-password
func (h *AuthHandler) Restore(c echo.Context) error {
	var req restoreReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Passwords.Restore(ctx, req.Code, req.NewPassword); err != nil {
		return err
	}
	h.cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}

