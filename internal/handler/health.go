package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clob-relay-go/internal/config"
	"clob-relay-go/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	svc     *service.RelayService
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, svc *service.RelayService, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, svc: svc, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns relay status information. The auth token itself is never
// included, only whether gating is enabled.
func (h *HealthHandler) Status(c echo.Context) error {
	auth := "disabled"
	if h.svc.AuthEnabled() {
		auth = "enabled"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":       "ok",
		"version":      string(h.version),
		"upstream_url": h.cfg.Upstream.BaseURL,
		"auth":         auth,
	})
}
