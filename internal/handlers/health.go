package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gogomedia/internal/db"
	"github.com/Skotchmaster/gogomedia/internal/logging"
)

type HealthHandler struct {
	DB *gorm.DB
}

func (h *HealthHandler) Index(c echo.Context) error {
	return ok(c, http.StatusOK, "gogomedia api")
}

func (h *HealthHandler) Live(c echo.Context) error {
	return ok(c, http.StatusOK, "live")
}

func (h *HealthHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := db.Ping(ctx, h.DB); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return ok(c, http.StatusOK, "ready")
}
