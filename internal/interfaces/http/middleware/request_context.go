// Package middleware holds the Gin middleware chain: request identity,
// recovery, observability, authentication, and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
	"github.com/montrose/hnwi-gateway/pkg/utils"
)

// RequestID assigns every request a correlation id, honoring one supplied by
// the caller, and propagates it through both the Gin context and the request
// context so downstream backend calls carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(constants.HeaderRequestID)
		if reqID == "" {
			reqID = utils.NewRequestID()
		}
		c.Set(string(constants.ContextKeyRequestID), reqID)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderRequestID, reqID)
		c.Next()
	}
}

// Recovery converts panics into a clean 500 envelope.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered", nil,
					logger.Any("panic", r),
					logger.String("path", c.Request.URL.Path),
				)
				c.Abort()
				dto.SendError(c, errors.ErrInternal)
			}
		}()
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	accessLog := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if userID := c.GetString(string(constants.ContextKeyUserID)); userID != "" {
			fields = append(fields, logger.String("user_id", userID))
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			accessLog.Error(ctx, "request failed", nil, fields...)
		case status >= http.StatusBadRequest:
			accessLog.Warn(ctx, "request rejected", fields...)
		default:
			accessLog.Info(ctx, "request", fields...)
		}
	}
}
