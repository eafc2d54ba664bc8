package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

type CategoryHTTP struct {
	Svc *service.CategoryService
}

func (h *CategoryHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_categories_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CategoryHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "get_category_failed", err)
	}

	cat, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_category_failed", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CategoryRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_category_failed", err)
	}

	cat, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_category_failed", err)
	}

	l.Info("create_category_success", "category_id", cat.ID)
	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("category.get", cat.ID))
	return c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "update_category_failed", err)
	}

	var req transport.CategoryRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_category_failed", err)
	}

	cat, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return fail(l, "update_category_failed", err)
	}

	l.Info("update_category_success", "category_id", id)
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "delete_category_failed", err)
	}

	ok, err := h.Svc.Delete(ctx, id)
	if err != nil {
		return fail(l, "delete_category_failed", err)
	}
	if !ok {
		l.Warn("delete_category_failed", "status", http.StatusNotFound, "reason", "category not found")
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}

	l.Info("delete_category_success", "category_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Category deleted successfully"})
}
