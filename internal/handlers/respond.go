package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gogomedia/internal/authgate"
	"github.com/Skotchmaster/gogomedia/internal/media"
	"github.com/Skotchmaster/gogomedia/internal/search"
	"github.com/Skotchmaster/gogomedia/internal/service"
)

const maxBodyBytes = 1 << 20

// Envelope is the body of every response.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	AuthToken string `json:"auth_token,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func ok(c echo.Context, status int, msg string) error {
	return c.JSON(status, Envelope{Success: true, Message: msg})
}

func okData(c echo.Context, msg string, data any) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: msg, Data: data})
}

func readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
}

func decodeBody(c echo.Context, v any) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", media.ErrMalformedBody, err)
	}
	return nil
}

// fail logs err under event and converts it to the HTTP error carrying the
// client-facing message.
func fail(l *slog.Logger, event string, err error) error {
	status, msg := classify(err)
	switch {
	case status >= 500:
		l.Error(event, "status", status, "error", err)
	default:
		l.Warn(event, "status", status, "reason", msg)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

func classify(err error) (int, string) {
	var (
		denial  *authgate.Denial
		invalid *media.ValidationError
		missing *service.MissingFieldError
	)
	switch {
	case errors.As(err, &denial):
		return denial.Status, denial.Message
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity, invalid.Message
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, missing.Error()
	case errors.Is(err, media.ErrOwnership):
		return http.StatusUnauthorized, media.ErrOwnership.Error()
	case errors.Is(err, media.ErrMalformedBody):
		return http.StatusBadRequest, "invalid request body"
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusUnprocessableEntity, service.ErrUsernameTaken.Error()
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnprocessableEntity, service.ErrUserNotFound.Error()
	case errors.Is(err, service.ErrIncorrectPassword):
		return http.StatusUnauthorized, service.ErrIncorrectPassword.Error()
	case errors.Is(err, search.ErrDisabled):
		return http.StatusServiceUnavailable, search.ErrDisabled.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// ErrorHandler renders every error returned by a handler or by echo itself
// as a failure envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if s, isStr := he.Message.(string); isStr {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, Envelope{Success: false, Message: msg})
}
