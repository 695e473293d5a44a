package handler

import (
	"coursecart/internal/dto"
	"coursecart/internal/middleware"
	"coursecart/internal/model"
	"coursecart/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

func (h *AccountHandler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	profile, err := h.accountService.ResolveProfile(ctx, middleware.UserID(c), middleware.UserEmail(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, toProfile(profile))
}

func (h *AccountHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	profiles, err := h.accountService.ListProfiles(ctx, middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}

	users := make([]dto.Profile, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, toProfile(p))
	}
	return c.JSON(http.StatusOK, map[string][]dto.Profile{"users": users})
}

func (h *AccountHandler) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	profile, err := h.accountService.SetRole(ctx, middleware.UserID(c), req.UserID, req.Role)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]dto.Profile{"user": toProfile(profile)})
}

func (h *AccountHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.DeleteUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.accountService.DeleteProfile(ctx, middleware.UserID(c), req.UserID); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AccountHandler) Promote(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PromoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.accountService.PromoteWithInviteCode(ctx, req.Code, req.Email); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func toProfile(p *model.Profile) dto.Profile {
	return dto.Profile{
		ID:        p.ID,
		Email:     p.Email,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}
