package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/images"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

const (
	imageField     = "imageFile"
	useBase64Field = "useBase64Storage"
)

type ProductHTTP struct {
	Svc *service.ProductService
}

// formImage reads the optional image part of a multipart request.
func formImage(c echo.Context) (*images.Upload, bool, error) {
	useBase64, _ := strconv.ParseBool(c.FormValue(useBase64Field))

	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, useBase64, nil
		}
		return nil, false, &service.Error{Kind: service.ErrValidation, Message: "invalid multipart body"}
	}

	upload, err := images.FromFileHeader(fh)
	if err != nil {
		return nil, false, err
	}
	return upload, useBase64, nil
}

func (h *ProductHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_products_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "get_product_failed", err)
	}

	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) ListByCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list_by_category")

	id, err := parseID(c, "categoryId")
	if err != nil {
		return fail(l, "list_products_failed", err)
	}

	items, err := h.Svc.ListByCategory(ctx, id)
	if err != nil {
		return fail(l, "list_products_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	items, err := h.Svc.Search(ctx, c.QueryParam("q"))
	if err != nil {
		return fail(l, "search_products_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHTTP) created(c echo.Context, p *transport.ProductResponse) error {
	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("product.get", p.ID))
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.ProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_product_failed", err)
	}

	p, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_product_failed", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return h.created(c, p)
}

func (h *ProductHTTP) CreateWithImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_with_image")

	var req transport.ProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_product_failed", err)
	}
	upload, useBase64, err := formImage(c)
	if err != nil {
		return fail(l, "create_product_failed", err)
	}

	p, err := h.Svc.CreateWithImage(ctx, req, upload, useBase64)
	if err != nil {
		return fail(l, "create_product_failed", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return h.created(c, p)
}

func (h *ProductHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "update_product_failed", err)
	}

	var req transport.ProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_product_failed", err)
	}

	p, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return fail(l, "update_product_failed", err)
	}

	l.Info("update_product_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) UpdateWithImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_with_image")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "update_product_failed", err)
	}

	var req transport.ProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_product_failed", err)
	}
	upload, useBase64, err := formImage(c)
	if err != nil {
		return fail(l, "update_product_failed", err)
	}

	p, err := h.Svc.UpdateWithImage(ctx, id, req, upload, useBase64)
	if err != nil {
		return fail(l, "update_product_failed", err)
	}

	l.Info("update_product_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "delete_product_failed", err)
	}

	ok, err := h.Svc.Delete(ctx, id)
	if err != nil {
		return fail(l, "delete_product_failed", err)
	}
	if !ok {
		l.Warn("delete_product_failed", "status", http.StatusNotFound, "reason", "product not found")
		return echo.NewHTTPError(http.StatusNotFound, "Product with ID "+strconv.FormatUint(uint64(id), 10)+" not found")
	}

	l.Info("delete_product_success", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Product deleted successfully"})
}

func (h *ProductHTTP) UploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.upload_image")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "upload_image_failed", err)
	}

	upload, useBase64, err := formImage(c)
	if err != nil {
		return fail(l, "upload_image_failed", err)
	}

	p, err := h.Svc.UploadImage(ctx, id, upload, useBase64)
	if err != nil {
		return fail(l, "upload_image_failed", err)
	}

	l.Info("upload_image_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_image")

	id, err := parseID(c, "id")
	if err != nil {
		return fail(l, "delete_image_failed", err)
	}

	ok, err := h.Svc.DeleteImage(ctx, id)
	if err != nil {
		return fail(l, "delete_image_failed", err)
	}
	if !ok {
		l.Warn("delete_image_failed", "status", http.StatusNotFound, "reason", "product not found")
		return echo.NewHTTPError(http.StatusNotFound, "Product with ID "+strconv.FormatUint(uint64(id), 10)+" not found")
	}

	l.Info("delete_image_success", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Image deleted successfully"})
}
