package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"music-edge/internal/config"
	"music-edge/internal/storage"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	store   storage.Store
}

// NewHealthHandler creates a HealthHandler. store may be nil when no
// storage backend is available.
func NewHealthHandler(cfg *config.Config, v Version, store storage.Store) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, store: store}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           string(h.version),
		"api_base_url":      h.cfg.Upstream.APIBaseURL,
		"audio_domain":      h.cfg.Upstream.AudioDomain,
		"storage_driver":    h.cfg.Storage.Driver,
		"storage_available": h.store != nil,
	})
}
