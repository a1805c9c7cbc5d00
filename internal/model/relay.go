// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// RelayRequest represents a client request to be forwarded upstream.
// RawPath and RawQuery carry the path and query string exactly as
// received; neither is re-encoded on the way out, so escaped octets like
// %2F survive byte-for-byte. RawPath is empty when the path needed no
// escaping.
type RelayRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawPath  string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
}

// RelayResponse represents the upstream response to be streamed back.
type RelayResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
