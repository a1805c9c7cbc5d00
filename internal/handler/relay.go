package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"clob-relay-go/internal/model"
	"clob-relay-go/internal/service"
)

// relayMarker is the value of the X-Relay header added to every relayed
// response so callers can tell a relay-forwarded reply from a direct one.
const relayMarker = "clob-relay"

// allowedMethods is the preflight allow-list.
const allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"

// preflightMaxAge is how long (in seconds) browsers may cache the
// preflight result.
const preflightMaxAge = "86400"

// RelayHandler forwards requests to the upstream CLOB API.
type RelayHandler struct {
	service *service.RelayService
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(svc *service.RelayService, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Handle is the single relay operation. Per request it terminates at the
// first matching branch: OPTIONS preflight, access gate, then a single
// forward attempt whose outcome is either the upstream response relayed
// verbatim or a synthesized 502.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()

	// CORS preflight: never gated, never forwarded.
	if req.Method == http.MethodOptions {
		hdr := c.Response().Header()
		hdr.Set("Access-Control-Allow-Origin", "*")
		hdr.Set("Access-Control-Allow-Methods", allowedMethods)
		hdr.Set("Access-Control-Allow-Headers", "*")
		hdr.Set("Access-Control-Max-Age", preflightMaxAge)
		return c.NoContent(http.StatusNoContent)
	}

	// Every non-preflight response, including 401 and 502, carries the
	// CORS and marker headers.
	hdr := c.Response().Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("X-Relay", relayMarker)

	if err := h.service.Authorize(req.Header); err != nil {
		h.logger.Warn("rejected request",
			"path", req.URL.Path,
			"remote_ip", c.RealIP(),
		)
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	rr := &model.RelayRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Path:     req.URL.Path,
		RawPath:  req.URL.RawPath,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     req.Body,
	}

	resp, err := h.service.Forward(rr)
	if err != nil {
		return h.relayError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// relayError translates a transport-level forwarding failure into the fixed
// 502 shape. Upstream HTTP error statuses never reach here; they are relayed
// as successes.
func (h *RelayHandler) relayError(c echo.Context, err error) error {
	detail := transportDetail(err)

	h.logger.Error("relay error",
		"err", detail,
		"path", c.Request().URL.Path,
	)

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error":  "Relay error",
		"detail": detail,
	})
}

// transportDetail extracts the underlying transport failure message. The
// url.Error wrapper is peeled off so the detail does not repeat the full
// outbound URL.
func transportDetail(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
