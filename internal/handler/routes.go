package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"music-edge/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, login *LoginHandler, storage *StorageHandler, health *HealthHandler) {
	secure := middleware.SecurityHeaders()

	e.GET("/healthz", health.Healthz, secure)
	e.GET("/proxy/status", health.Status, secure)

	e.Any("/api/login", login.Handle, secure)

	e.Any("/api/storage", storage.Handle, echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}), secure)

	// The dispatcher owns method handling, including OPTIONS and 405.
	e.Any("/api/proxy", proxy.Handle)
	e.Any("/api/proxy/*", proxy.Handle)
	e.Any("/proxy", proxy.Handle)
}
