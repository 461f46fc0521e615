package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
)

// IntelligenceHandler serves the dashboard, opportunity feed, and map.
type IntelligenceHandler struct {
	intelService service.IntelligenceAppService
}

// NewIntelligenceHandler creates a new IntelligenceHandler.
func NewIntelligenceHandler(intelService service.IntelligenceAppService) *IntelligenceHandler {
	return &IntelligenceHandler{intelService: intelService}
}

// Dashboard returns the aggregated intelligence payload.
func (h *IntelligenceHandler) Dashboard(c *gin.Context) {
	session := middleware.SessionFrom(c)

	resp, err := h.intelService.Dashboard(c.Request.Context(), session.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// Opportunities returns the opportunity feed.
func (h *IntelligenceHandler) Opportunities(c *gin.Context) {
	session := middleware.SessionFrom(c)

	resp, err := h.intelService.Opportunities(c.Request.Context(), session.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// MapClusters returns clustered, color-graded markers for the map.
func (h *IntelligenceHandler) MapClusters(c *gin.Context) {
	session := middleware.SessionFrom(c)

	clusters, stale, err := h.intelService.MapClusters(c.Request.Context(), session.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"clusters": clusters, "stale": stale})
}
