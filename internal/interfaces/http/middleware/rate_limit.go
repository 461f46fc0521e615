package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
	"github.com/montrose/hnwi-gateway/pkg/utils"
)

// RateLimit enforces a per-identifier budget. The user scope keys on the
// authenticated user id and falls back to client IP before authentication.
func RateLimit(limiter domainService.RateLimitService, scope constants.RateLimitScope, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	rlLog := log.WithComponent("RateLimit")
	return func(c *gin.Context) {
		identifier := c.ClientIP()
		if scope == constants.RateLimitScopeUser {
			identifier = utils.FirstNonEmpty(c.GetString(string(constants.ContextKeyUserID)), identifier)
		}

		allowed, remaining, retryAfter, err := limiter.Allow(c.Request.Context(), scope, identifier)
		if err != nil {
			// The limiter already degraded to its local fallback; an error
			// here means even that failed. Let the request through.
			rlLog.Warn(c.Request.Context(), "rate limiter unavailable", logger.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			metrics.RecordRateLimitHit(string(scope))
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			abort(c, errors.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
