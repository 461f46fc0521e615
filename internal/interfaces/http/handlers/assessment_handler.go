package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/sse"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// AssessmentHandler drives the wealth assessment flow endpoints, including
// the digital twin SSE relay.
type AssessmentHandler struct {
	assessmentService service.AssessmentAppService
	relay             *sse.Relay
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService service.AssessmentAppService, relay *sse.Relay) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService, relay: relay}
}

// Start begins a flow, or returns the live one.
func (h *AssessmentHandler) Start(c *gin.Context) {
	session := middleware.SessionFrom(c)

	status, err := h.assessmentService.Start(c.Request.Context(), session.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, status)
}

// Status returns the current flow state.
func (h *AssessmentHandler) Status(c *gin.Context) {
	session := middleware.SessionFrom(c)

	status, err := h.assessmentService.Status(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, status)
}

// Advance moves the flow one step forward.
func (h *AssessmentHandler) Advance(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req dto.AdvanceFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	status, err := h.assessmentService.Advance(c.Request.Context(), session.UserID, c.Param("id"), req.Target)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, status)
}

// Answer records one assessment answer.
func (h *AssessmentHandler) Answer(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	status, err := h.assessmentService.Answer(c.Request.Context(), session.UserID, c.Param("id"), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, status)
}

// Complete ends the question loop and enters the digital twin wait.
func (h *AssessmentHandler) Complete(c *gin.Context) {
	session := middleware.SessionFrom(c)

	status, err := h.assessmentService.Complete(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, status)
}

// Stream relays the backend's digital twin progress stream to the client.
func (h *AssessmentHandler) Stream(c *gin.Context) {
	session := middleware.SessionFrom(c)

	flusher, ok := c.Writer.(sse.Flusher)
	if !ok {
		dto.SendError(c, errors.ErrInternal.WithMessage("streaming unsupported"))
		return
	}

	resp, err := h.assessmentService.Stream(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	flusher.Flush()

	if err := h.relay.Run(c.Request.Context(), resp.Body, flusher); err != nil {
		// Headers are gone; all that is left is to stop.
		c.Abort()
	}
}
