package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
)

// ProfileHandler passes profile and preference routes straight through to
// the backend. Nothing here needs reshaping, so the generic forwarder does
// the work.
type ProfileHandler struct {
	forwarder *upstream.Forwarder
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(forwarder *upstream.Forwarder) *ProfileHandler {
	return &ProfileHandler{forwarder: forwarder}
}

// Profile proxies GET and PUT of the member profile.
func (h *ProfileHandler) Profile(c *gin.Context) {
	session := middleware.SessionFrom(c)
	h.forwarder.Forward(c, "/api/users/profile", upstream.WithUser(session.UserID))
}

// Preferences proxies GET and PUT of notification and display preferences.
func (h *ProfileHandler) Preferences(c *gin.Context) {
	session := middleware.SessionFrom(c)
	h.forwarder.Forward(c, "/api/users/preferences", upstream.WithUser(session.UserID))
}
