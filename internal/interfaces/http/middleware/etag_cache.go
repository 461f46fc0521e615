package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// bodyCacheWriter buffers the response body so an ETag can be computed
// before anything reaches the client.
type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCacheWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

// ETagCache adds ETag negotiation to GET responses. Streaming requests are
// passed through untouched since buffering would stall them.
func ETagCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet ||
			strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
			c.Next()
			return
		}

		bcw := &bodyCacheWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = bcw
		c.Next()

		body := bcw.body.Bytes()
		if c.Writer.Status() == http.StatusOK && len(body) > 0 {
			hash := sha256.Sum256(body)
			etag := fmt.Sprintf(`"%x"`, hash)

			if c.GetHeader("If-None-Match") == etag {
				// RFC 9110 requires the validator on the 304 itself.
				c.Header("ETag", etag)
				c.Status(http.StatusNotModified)
				return
			}
			c.Header("ETag", etag)
			c.Header("Cache-Control", "private, max-age=60, must-revalidate")
		}
		bcw.ResponseWriter.Write(body)
	}
}
