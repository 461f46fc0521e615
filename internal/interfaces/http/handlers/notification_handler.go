package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// NotificationHandler exposes the notification inbox.
type NotificationHandler struct {
	notificationService service.NotificationAppService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService service.NotificationAppService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns recent inbox entries.
func (h *NotificationHandler) List(c *gin.Context) {
	session := middleware.SessionFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	items, err := h.notificationService.List(c.Request.Context(), session.UserID, limit)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, items)
}

// Counts returns the inbox badge counts.
func (h *NotificationHandler) Counts(c *gin.Context) {
	session := middleware.SessionFrom(c)

	counts, err := h.notificationService.Counts(c.Request.Context(), session.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, counts)
}

// MarkRead marks inbox entries read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), session.UserID, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"marked": len(req.IDs)})
}
