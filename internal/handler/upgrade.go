package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/service"
)

// UpgradeHandler serves upgrade token issuance and redemption.
type UpgradeHandler struct {
	Upgrades *service.UpgradeService
}

func NewUpgradeHandler(upgrades *service.UpgradeService) *UpgradeHandler {
	return &UpgradeHandler{Upgrades: upgrades}
}

type issueReq struct {
	Grant string `json:"fator_cargo"`
}

type redeemResp struct {
	ID   string     `json:"id"`
	Role model.Role `json:"cargo"`
}

// Issue: POST /v1/manager/upgrade-tokens. The grant defaults to DRIVER.
func (h *UpgradeHandler) Issue(c echo.Context) error {
	manager, err := principal(c)
	if err != nil {
		return err
	}
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("malformed request body")
	}
	grant := model.RoleDriver
	if strings.TrimSpace(req.Grant) != "" {
		if grant, err = model.ParseRole(req.Grant); err != nil {
			return apperror.Validation(apperror.FieldError{Field: "fator_cargo", Message: "fator_cargo must be DRIVER or MANAGER"})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	tok, err := h.Upgrades.Issue(ctx, manager, grant)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tok)
}

// Inspect: GET /v1/upgradetoken/:id
func (h *UpgradeHandler) Inspect(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	tok, err := h.Upgrades.Inspect(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tok)
}

// Redeem: POST /v1/upgradetoken/:id. The body is only needed for DRIVER
// tokens; an empty body redeems without driver details. The service checks
// the details once it knows what the token grants.
func (h *UpgradeHandler) Redeem(c echo.Context) error {
	u, err := principal(c)
	if err != nil {
		return err
	}
	fields, err := driverFields(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	upgraded, err := h.Upgrades.Redeem(ctx, u, c.Param("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, redeemResp{ID: upgraded.ID, Role: upgraded.Role})
}

func driverFields(c echo.Context) (*service.DriverFields, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64<<10))
	if err != nil {
		return nil, apperror.BadRequest("malformed request body")
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, nil
	}
	c.Request().Body = io.NopCloser(strings.NewReader(string(body)))
	c.Request().ContentLength = int64(len(body))

	var f service.DriverFields
	if err := c.Bind(&f); err != nil {
		return nil, apperror.BadRequest("malformed request body")
	}
	return &f, nil
}
