// Package handlers holds the Gin HTTP handlers. Handlers bind and validate
// requests, delegate to application services, and shape responses; they hold
// no business logic of their own.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// AuthHandler handles login, MFA, refresh, logout, and session introspection.
type AuthHandler struct {
	authService service.AuthAppService
	cookieCfg   *config.AuthConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthAppService, cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookieCfg: cfg}
}

// Login forwards credentials to the backend and, unless MFA intervenes, sets
// the session cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	result, tokens, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	if tokens != nil {
		h.setCookies(c, tokens)
	}
	dto.SendSuccess(c, http.StatusOK, result)
}

// VerifyMFA completes a pending challenge and sets the session cookies.
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req dto.MFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	result, tokens, err := h.authService.VerifyMFA(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	h.setCookies(c, tokens)
	dto.SendSuccess(c, http.StatusOK, result)
}

// Refresh rotates the session using the refresh cookie. On an invalid
// refresh token both cookies are cleared so the frontend lands on login.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(constants.RefreshCookieName)

	result, tokens, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if app, ok := errors.AsAppError(err); ok && app.Status == http.StatusUnauthorized {
			h.clearCookies(c)
		}
		dto.SendError(c, err)
		return
	}

	h.setCookies(c, tokens)
	dto.SendSuccess(c, http.StatusOK, result)
}

// Logout revokes the session and clears both cookies. Always succeeds from
// the client's point of view once the session is dead locally.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if session == nil {
		dto.SendError(c, errors.ErrUnauthorized)
		return
	}
	refreshToken, _ := c.Cookie(constants.RefreshCookieName)

	if err := h.authService.Logout(c.Request.Context(), session, refreshToken); err != nil {
		dto.SendError(c, err)
		return
	}

	h.clearCookies(c)
	dto.SendSuccess(c, http.StatusOK, gin.H{"logged_out": true})
}

// Session reports the current session for the frontend shell.
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if session == nil {
		dto.SendError(c, errors.ErrUnauthorized)
		return
	}
	dto.SendSuccess(c, http.StatusOK, &dto.SessionInfo{
		UserID:    session.UserID,
		Tier:      session.Tier,
		ExpiresAt: session.ExpiresAt.Unix(),
	})
}

func (h *AuthHandler) setCookies(c *gin.Context, tokens *service.AuthTokens) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookieName, tokens.SessionToken,
		int(tokens.SessionTTL.Seconds()), "/", h.cookieCfg.CookieDomain, h.cookieCfg.CookieSecure, true)
	if tokens.RefreshToken != "" {
		c.SetCookie(constants.RefreshCookieName, tokens.RefreshToken,
			int(tokens.RefreshTTL.Seconds()), "/api/v1/auth", h.cookieCfg.CookieDomain, h.cookieCfg.CookieSecure, true)
	}
}

func (h *AuthHandler) clearCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookieName, "", -1, "/", h.cookieCfg.CookieDomain, h.cookieCfg.CookieSecure, true)
	c.SetCookie(constants.RefreshCookieName, "", -1, "/api/v1/auth", h.cookieCfg.CookieDomain, h.cookieCfg.CookieSecure, true)
}
