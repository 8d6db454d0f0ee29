package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/gogomedia/internal/handlers"
	loggingmw "github.com/Skotchmaster/gogomedia/internal/middleware/logging"
)

type Deps struct {
	AuthHandler   *handlers.AuthHandler
	MediaHandler  *handlers.MediaHandler
	HealthHandler *handlers.HealthHandler
	Metrics       http.Handler
}

// New builds the echo instance with the shared middleware chain and error
// rendering. Routes are added by Register.
func New(logger *slog.Logger, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: corsOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		}),
	)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", d.HealthHandler.Index)
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.GET("/logout", d.AuthHandler.Logout)

	user := e.Group("/user/:username")

	user.GET("/media", d.MediaHandler.List)
	user.PUT("/media", d.MediaHandler.Upsert)
	user.DELETE("/media", d.MediaHandler.Delete)
	user.GET("/media/search", d.MediaHandler.Search)
}
