package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/middleware/auth"
	"github.com/Skotchmaster/inventory_api/internal/repo"
)

type Deps struct {
	UoW             repo.Factory
	AuthHandler     *AuthHTTP
	CategoryHandler *CategoryHTTP
	ProductHandler  *ProductHTTP
	SearchHandler   *SearchHTTP
	Bearer          *auth.BearerAuth

	// ImageDir is served under /images when images live on local disk.
	ImageDir string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	if d.ImageDir != "" {
		e.Static("/images", d.ImageDir)
	}

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/refresh", d.AuthHandler.Refresh)
	authGroup.POST("/revoke", d.AuthHandler.Revoke)

	private := api.Group("", d.Bearer.RequireAuth)

	categories := private.Group("/categories")
	categories.GET("", d.CategoryHandler.List)
	categories.GET("/:id", d.CategoryHandler.Get).Name = "category.get"
	categories.POST("", d.CategoryHandler.Create)
	categories.PUT("/:id", d.CategoryHandler.Update)
	categories.DELETE("/:id", d.CategoryHandler.Delete)

	products := private.Group("/products")
	products.GET("", d.ProductHandler.List)
	products.GET("/search", d.ProductHandler.Search)
	products.GET("/category/:categoryId", d.ProductHandler.ListByCategory)
	products.GET("/:id", d.ProductHandler.Get).Name = "product.get"
	products.POST("", d.ProductHandler.Create)
	products.POST("/with-image", d.ProductHandler.CreateWithImage)
	products.PUT("/:id", d.ProductHandler.Update)
	products.PUT("/:id/with-image", d.ProductHandler.UpdateWithImage)
	products.DELETE("/:id", d.ProductHandler.Delete)
	products.POST("/:id/image", d.ProductHandler.UploadImage)
	products.DELETE("/:id/image", d.ProductHandler.DeleteImage)

	private.GET("/search", d.SearchHandler.Search)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	uow := d.UoW.New()
	defer uow.Close()

	if err := uow.Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "status", http.StatusServiceUnavailable, "error", err)
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
