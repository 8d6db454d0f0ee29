package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gogomedia/internal/authgate"
	"github.com/Skotchmaster/gogomedia/internal/logging"
	"github.com/Skotchmaster/gogomedia/internal/service"
)

type AuthHandler struct {
	Auth *service.AuthService
	Gate *authgate.Gate
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req service.Credentials
	if err := decodeBody(c, &req); err != nil {
		return fail(l, "register_failed", err)
	}

	token, user, err := h.Auth.Register(ctx, req)
	if err != nil {
		return fail(l, "register_failed", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, Envelope{
		Success:   true,
		Message:   "user successfully registered",
		AuthToken: token,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req service.Credentials
	if err := decodeBody(c, &req); err != nil {
		return fail(l, "login_failed", err)
	}

	token, user, err := h.Auth.Login(ctx, req)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Message:   "user successfully logged in",
		AuthToken: token,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	p, err := h.Gate.Authorize(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return fail(l, "logout_denied", err)
	}

	if err := h.Auth.Logout(ctx, p); err != nil {
		return fail(l, "logout_failed", err)
	}

	l.Info("logout_success")
	return ok(c, http.StatusOK, "user successfully logged out")
}
