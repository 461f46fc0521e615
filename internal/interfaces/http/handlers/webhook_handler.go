package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// maxWebhookBody bounds an incoming webhook payload.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider deliveries. These routes sit
// outside session auth: the HMAC signature is the authentication.
type WebhookHandler struct {
	webhookService service.WebhookAppService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookService service.WebhookAppService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// Razorpay handles a Razorpay webhook delivery.
func (h *WebhookHandler) Razorpay(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil || len(payload) == 0 {
		dto.SendError(c, errors.ErrInvalidRequest.WithMessage("empty webhook payload"))
		return
	}

	signature := c.GetHeader(constants.HeaderRazorpaySignature)
	ack, err := h.webhookService.Process(c.Request.Context(), "razorpay", signature, payload)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, ack)
}
