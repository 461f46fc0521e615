// Package dto holds the request and response shapes exchanged with clients
// plus helpers that render the uniform API envelope.
package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO carries a machine code plus human detail.
type ErrorDTO struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse builds a success envelope.
func SuccessResponse(data interface{}, requestID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse builds an error envelope from any error. Non-AppErrors
// collapse to internal_error without leaking their text.
func ErrorResponse(err error, requestID string) *APIResponse {
	app, ok := errors.AsAppError(err)
	if !ok {
		app = errors.ErrInternal
	}
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:    app.Code,
			Message: app.Message,
			Details: app.Details,
		},
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// SendSuccess writes a success envelope with the given status.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data, RequestID(c)))
}

// SendError resolves the HTTP status from the error and writes the envelope.
func SendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if app, ok := errors.AsAppError(err); ok {
		status = app.Status
	}
	c.JSON(status, ErrorResponse(err, RequestID(c)))
}

// RequestID extracts the request id the middleware placed in the context.
func RequestID(c *gin.Context) string {
	return c.GetString(string(constants.ContextKeyRequestID))
}
