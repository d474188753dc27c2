// Package header provides header handling for the brainstream relay.
//
// The relay sits between dashboard clients and the brain's event stream:
//
//	Client <--> Relay <--> Upstream brain /events
//
// Each leg negotiates hops and caching independently, so only a short list of
// client headers travels upstream and the client always gets a fixed set of
// streaming headers back.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between relay connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ConnectionIDHeader carries the relay connection id back to the client.
const ConnectionIDHeader = "X-Brainstream-Connection"

// LastEventIDHeader is the SSE resume header.
const LastEventIDHeader = "Last-Event-ID"

// forwardRequest is the set of request headers (client --> relay --> upstream)
// that are forwarded to the brain. Everything else stays on the client leg.
var forwardRequest = []string{
	"Authorization",
	LastEventIDHeader,
	"X-Request-Id",
}

// skipResponse is the set of upstream response headers (client <-- relay <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// fasthttp manages chunked transfer encoding for the client-facing
	// response independently.
	"Transfer-Encoding": {},

	// Go's http.Transport strips Content-Encoding after auto-decompression,
	// so the relayed body is never encoded.
	"Content-Encoding": {},

	// Streams have no length.
	"Content-Length": {},

	// Set by SetStreamHeaders.
	"Content-Type":      {},
	"Cache-Control":     {},
	"X-Accel-Buffering": {},
}

// streamHeaders are the response headers of every relayed stream.
var streamHeaders = [][2]string{
	{"Content-Type", "text/event-stream; charset=utf-8"},
	{"Cache-Control", "no-cache, no-transform"},
	{"Connection", "keep-alive"},
	// Disables response buffering in nginx-style reverse proxies.
	{"X-Accel-Buffering", "no"},
}

// SetUpstreamRequestHeaders copies the forwarded request headers from the
// Fiber context to the outgoing http.Request and marks it as a stream request.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	for _, k := range forwardRequest {
		if v := c.Get(k); v != "" {
			req.Header.Set(k, v)
		}
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")
}

// SetClientResponseHeaders copies response headers from the upstream
// http.Response to the Fiber context, filtering headers that the relay should
// not forward back down to the client, then applies the stream headers.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
	h.SetStreamHeaders(c)
}

// SetStreamHeaders sets the headers of a relayed event stream.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx) {
	for _, kv := range streamHeaders {
		c.Set(kv[0], kv[1])
	}
}
