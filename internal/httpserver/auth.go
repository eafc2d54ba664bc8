package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "register_failed", err)
	}

	resp, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_failed", err)
	}

	l.Info("register_success", "username", resp.Username)
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "login_failed", err)
	}

	resp, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_success", "username", resp.Username)
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(l, "refresh_failed", &service.Error{Kind: service.ErrValidation, Message: "invalid body"})
	}

	resp, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(l, "refresh_failed", err)
	}

	l.Info("refresh_success", "username", resp.Username)
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHTTP) Revoke(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.revoke")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(l, "revoke_failed", &service.Error{Kind: service.ErrValidation, Message: "invalid body"})
	}

	ok, err := h.Svc.Revoke(ctx, req.RefreshToken)
	if err != nil {
		return fail(l, "revoke_failed", err)
	}
	if !ok {
		l.Warn("revoke_failed", "status", http.StatusBadRequest, "reason", "unknown token")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid refresh token")
	}

	l.Info("revoke_success")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Token revoked successfully"})
}
