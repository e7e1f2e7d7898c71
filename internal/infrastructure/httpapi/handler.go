package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PharmaWatch/internal/ports"
	"PharmaWatch/internal/usecase"
)

// NotReady is returned while a collection has never been loaded.
const NotReady = "NotReady"

// Success wraps a loaded collection.
type Success[T any] struct {
	Success T `json:"Success"`
}

// StatusProvider reports refresh pipeline progress.
type StatusProvider interface {
	Status() usecase.Status
}

// RegisterRoutes mounts the read-only query API.
func RegisterRoutes(e *echo.Echo, store ports.SnapshotReader, status StatusProvider) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/lieferengpaesse", func(c echo.Context) error {
		reports, ready := store.Shortages()
		if !ready {
			return c.JSON(http.StatusOK, NotReady)
		}
		return c.JSON(http.StatusOK, Success[any]{Success: reports})
	})
	api.GET("/briefe", func(c echo.Context) error {
		letters, ready := store.Letters()
		if !ready {
			return c.JSON(http.StatusOK, NotReady)
		}
		return c.JSON(http.StatusOK, Success[any]{Success: letters})
	})
	api.GET("/status", func(c echo.Context) error {
		if status == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "status unavailable"})
		}
		return c.JSON(http.StatusOK, status.Status())
	})
}
