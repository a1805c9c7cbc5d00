package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The relay
// catches every path and method; only the health and status endpoints are
// reserved and never forwarded upstream.
func RegisterRoutes(e *echo.Echo, relay *RelayHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/relay/status", health.Status)

	e.Any("/", relay.Handle)
	e.Any("/*", relay.Handle)
}
