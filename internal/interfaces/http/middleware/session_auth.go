package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// sessionKey is where the verified session lands in the Gin context.
const sessionKey = "session"

// SessionAuth verifies the session cookie and rejects revoked tokens. The
// verified session is stored in the context for handlers.
func SessionAuth(tokens domainService.SessionTokenService, blacklist domainService.SessionBlacklist, log logger.Logger) gin.HandlerFunc {
	authLog := log.WithComponent("SessionAuth")
	return func(c *gin.Context) {
		token, err := c.Cookie(constants.SessionCookieName)
		if err != nil || token == "" {
			abort(c, errors.ErrUnauthorized.WithMessage("missing session"))
			return
		}

		session, err := tokens.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}

		revoked, err := blacklist.IsRevoked(c.Request.Context(), session.JTI)
		if err != nil {
			// Fail closed: an unreadable blacklist must not admit a
			// possibly revoked session.
			authLog.Error(c.Request.Context(), "blacklist check failed", err)
			abort(c, errors.ErrUnauthorized.WithMessage("session verification unavailable"))
			return
		}
		if revoked {
			abort(c, errors.ErrUnauthorized.WithMessage("session revoked"))
			return
		}

		c.Set(sessionKey, session)
		c.Set(string(constants.ContextKeyUserID), session.UserID)
		c.Set(string(constants.ContextKeySessionJTI), session.JTI)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyUserID, session.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireTier gates a route group behind a minimum membership tier.
func RequireTier(tier constants.MemberTier) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)
		if session == nil {
			abort(c, errors.ErrUnauthorized)
			return
		}
		if !session.HasTier(tier) {
			abort(c, errors.ErrForbidden.WithMessage("requires %s membership", tier))
			return
		}
		c.Next()
	}
}

// SessionFrom returns the verified session, or nil outside authenticated
// routes.
func SessionFrom(c *gin.Context) *models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}
	return nil
}

func abort(c *gin.Context, err error) {
	c.Abort()
	dto.SendError(c, err)
}
