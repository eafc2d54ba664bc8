package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/images"
	"github.com/Skotchmaster/inventory_api/internal/service"
)

// fail logs err under event and turns it into the HTTP error the client sees.
// Only service and image errors carry their text to the client.
func fail(l *slog.Logger, event string, err error) error {
	var se *service.Error
	switch {
	case errors.As(err, &se):
		code := statusFor(se.Kind)
		l.Warn(event, "status", code, "reason", se.Message)
		return echo.NewHTTPError(code, se.Message)
	case errors.Is(err, images.ErrInvalidImage):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid image", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	l.Error(event, "status", http.StatusInternalServerError, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, service.ErrValidation),
		errors.Is(kind, service.ErrDuplicate),
		errors.Is(kind, service.ErrConflict):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.Error{Kind: service.ErrValidation, Message: name + " must be a positive integer"}
	}
	return uint(id), nil
}

// bind decodes the body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &service.Error{Kind: service.ErrValidation, Message: "invalid body"}
	}
	return c.Validate(req)
}
