// Package service implements the core relay forwarding logic.
package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"clob-relay-go/internal/client"
	"clob-relay-go/internal/config"
	"clob-relay-go/internal/model"
)

// ErrUnauthorized is returned when an auth token is configured and the
// caller's bearer token is absent or does not match.
var ErrUnauthorized = errors.New("unauthorized")

// strippedRequestHeaders are removed from every outbound request. The
// Authorization header is the relay's own access credential and must never
// reach upstream; the rest identify the original client's network origin.
var strippedRequestHeaders = []string{
	"Authorization",
	"X-Forwarded-For",
	"X-Real-Ip",
	"True-Client-Ip",
	"Cf-Connecting-Ip",
	"Cf-Ipcountry",
}

// hopByHopResponseHeaders are dropped from relayed responses; the server
// manages its own connection and framing.
var hopByHopResponseHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"Trailer",
	"Upgrade",
}

// relayOwnedResponseHeaders are dropped from upstream responses because the
// relay sets its own values. Keeping upstream's Access-Control-Allow-Origin
// alongside the relay's wildcard would give the client two values, which
// browsers reject as an invalid CORS response.
var relayOwnedResponseHeaders = []string{
	"Access-Control-Allow-Origin",
	"X-Relay",
}

// RelayService handles the forwarding logic for relay requests.
type RelayService struct {
	client  *client.UpstreamClient
	cfg     *config.Config
	logger  *slog.Logger
	baseURL *url.URL
}

// NewRelayService creates a RelayService.
func NewRelayService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*RelayService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &RelayService{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "relay_service"),
		baseURL: u,
	}, nil
}

// UpstreamHost returns the hostname of the configured upstream.
func (s *RelayService) UpstreamHost() string {
	return s.baseURL.Host
}

// AuthEnabled reports whether the relay access gate is configured.
func (s *RelayService) AuthEnabled() bool {
	return s.cfg.Relay.AuthToken != ""
}

// Authorize checks the inbound Authorization header against the configured
// token, if any. An empty configured token means open access. The comparison
// is constant-time so the token cannot be probed byte by byte.
func (s *RelayService) Authorize(header http.Header) error {
	want := s.cfg.Relay.AuthToken
	if want == "" {
		return nil
	}

	got := strings.TrimSpace(strings.TrimPrefix(header.Get("Authorization"), "Bearer "))
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Forward sends a RelayRequest to the upstream and returns the response.
// The caller is responsible for closing the response body.
//
// The request is forwarded as-is: same method, same path and query, body
// untouched (dropped for GET). Headers are copied minus the stripped set.
// Upstream error statuses are not errors here; only a transport-level
// failure returns a non-nil error.
func (s *RelayService) Forward(rr *model.RelayRequest) (*model.RelayResponse, error) {
	upstreamURL := s.buildUpstreamURL(rr.Path, rr.RawPath, rr.RawQuery)
	header := s.sanitizeRequestHeaders(rr.Header)

	body := rr.Body
	if rr.Method == http.MethodGet {
		body = nil
	}

	s.logger.Debug("forwarding request",
		"method", rr.Method,
		"path", rr.Path,
	)

	resp, err := s.client.DoStream(rr.Ctx, rr.Method, upstreamURL, s.baseURL.Host, header, body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = s.sanitizeResponseHeaders(resp.Header)
	return resp, nil
}

// buildUpstreamURL joins the upstream origin with the exact inbound path and
// raw query string. No re-encoding, no rewriting: when the inbound path had
// escaped octets, rawPath keeps them intact.
func (s *RelayService) buildUpstreamURL(path, rawPath, rawQuery string) string {
	u := *s.baseURL
	u.Path = path
	u.RawPath = rawPath
	u.RawQuery = rawQuery
	return u.String()
}

func (s *RelayService) sanitizeRequestHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, key := range strippedRequestHeaders {
		dst.Del(key)
	}
	return dst
}

func (s *RelayService) sanitizeResponseHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, key := range hopByHopResponseHeaders {
		dst.Del(key)
	}
	for _, key := range relayOwnedResponseHeaders {
		dst.Del(key)
	}
	return dst
}
