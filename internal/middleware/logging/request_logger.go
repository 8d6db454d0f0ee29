package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gogomedia/internal/logging"
)

// RequestLogger attaches a request-scoped logger to the request context and
// writes one summary line per request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", req.Method,
				"path", c.Path(),
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
			}

			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			dur := time.Since(start)
			status := c.Response().Status

			switch {
			case status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
