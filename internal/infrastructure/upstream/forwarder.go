package upstream

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// forwardedRequestHeaders are copied from the incoming request to the
// backend. Everything else (cookies, client auth) stays at the gateway.
var forwardedRequestHeaders = []string{
	"Content-Type",
	"Accept",
	"Accept-Language",
	"If-None-Match",
}

// forwardedResponseHeaders are copied from the backend response back to the
// client.
var forwardedResponseHeaders = []string{
	"Content-Type",
	"Content-Disposition",
	"Cache-Control",
	"ETag",
}

// Forwarder is the generic pass-through used by routes that need no payload
// reshaping: method and body go to the backend, status and body come back.
// There is deliberately no retry and no circuit breaker; failures surface as
// a 503 envelope.
type Forwarder struct {
	client *Client
	logger logger.Logger
}

// NewForwarder creates a Forwarder over the backend client.
func NewForwarder(client *Client, log logger.Logger) *Forwarder {
	return &Forwarder{client: client, logger: log.WithComponent("Forwarder")}
}

// Forward proxies the current request to the given backend path and writes
// the backend's response directly to the client.
func (f *Forwarder) Forward(c *gin.Context, path string, opts ...RequestOption) {
	ctx := c.Request.Context()

	var body io.Reader
	if c.Request.Body != nil && c.Request.Method != http.MethodGet {
		body = c.Request.Body
	}

	for _, h := range forwardedRequestHeaders {
		if v := c.GetHeader(h); v != "" {
			opts = append(opts, WithHeader(h, v))
		}
	}

	resp, err := f.client.Do(ctx, c.Request.Method, path, body, opts...)
	if err != nil {
		app, _ := errors.AsAppError(err)
		c.JSON(app.Status, gin.H{"error": app.Code, "message": app.Message})
		return
	}
	defer resp.Body.Close()

	for _, h := range forwardedResponseHeaders {
		if v := resp.Header.Get(h); v != "" {
			c.Header(h, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		f.logger.Warn(ctx, "response copy interrupted", logger.Error(err), logger.String("path", path))
	}
}
