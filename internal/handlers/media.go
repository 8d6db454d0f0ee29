package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gogomedia/internal/authgate"
	"github.com/Skotchmaster/gogomedia/internal/logging"
	"github.com/Skotchmaster/gogomedia/internal/media"
	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/service"
)

type MediaHandler struct {
	Media *service.MediaService
	Gate  *authgate.Gate
}

// owner runs the gate once and resolves the :username path segment.
func (h *MediaHandler) owner(c echo.Context) (*models.User, error) {
	ctx := c.Request().Context()
	p, err := h.Gate.Authorize(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	return h.Gate.ActingOwner(ctx, p, c.Param("username"))
}

func (h *MediaHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media_list")

	owner, err := h.owner(c)
	if err != nil {
		return fail(l, "media_list_denied", err)
	}

	filter, err := media.ParseFilter(c.QueryParams())
	if err != nil {
		return fail(l, "media_list_failed", err)
	}

	items, err := h.Media.List(ctx, owner, filter)
	if err != nil {
		return fail(l, "media_list_failed", err)
	}
	return okData(c, "successfully got media for the logged in user", items)
}

func (h *MediaHandler) Upsert(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media_upsert")

	owner, err := h.owner(c)
	if err != nil {
		return fail(l, "media_upsert_denied", err)
	}

	body, err := readBody(c)
	if err != nil {
		return fail(l, "media_upsert_failed", err)
	}
	items, isList, err := media.ParseBatch(body)
	if err != nil {
		return fail(l, "media_upsert_failed", err)
	}

	result, err := h.Media.Upsert(ctx, owner, items)
	if err != nil {
		return fail(l, "media_upsert_failed", err)
	}

	l.Info("media_upsert_success", "owner_id", owner.ID, "count", len(result))
	if isList {
		return okData(c, "successfully added/updated media elements", result)
	}
	return okData(c, "successfully added/updated media element", result[0])
}

func (h *MediaHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media_delete")

	owner, err := h.owner(c)
	if err != nil {
		return fail(l, "media_delete_denied", err)
	}

	body, err := readBody(c)
	if err != nil {
		return fail(l, "media_delete_failed", err)
	}
	id, err := media.ParseDeleteID(body)
	if err != nil {
		return fail(l, "media_delete_failed", err)
	}

	if err := h.Media.Delete(ctx, owner, id); err != nil {
		return fail(l, "media_delete_failed", err)
	}
	return ok(c, http.StatusOK, "successfully deleted media element")
}

func (h *MediaHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media_search")

	owner, err := h.owner(c)
	if err != nil {
		return fail(l, "media_search_denied", err)
	}

	q := c.QueryParam("q")
	if q == "" {
		l.Warn("media_search_failed", "status", http.StatusBadRequest, "reason", "missing query")
		return echo.NewHTTPError(http.StatusBadRequest, "missing parameter 'q'")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	res, err := h.Media.Search(ctx, owner, q, page, size)
	if err != nil {
		return fail(l, "media_search_failed", err)
	}
	return okData(c, "successfully searched media for the logged in user", res)
}
