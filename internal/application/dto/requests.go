package dto

import (
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/pkg/constants"
)

// LoginRequest is the credential payload forwarded to the backend.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// MFARequest completes a pending multi-factor challenge.
type MFARequest struct {
	ChallengeID string `json:"challenge_id" binding:"required"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
}

// LoginResult is returned to the client after a successful login or MFA
// verification. Tokens travel in cookies, never in the body.
type LoginResult struct {
	UserID       string               `json:"user_id"`
	Tier         constants.MemberTier `json:"tier"`
	MFARequired  bool                 `json:"mfa_required"`
	ChallengeID  string               `json:"challenge_id,omitempty"`
	SessionValid bool                 `json:"session_valid"`
}

// SessionInfo describes the current session for the frontend shell.
type SessionInfo struct {
	UserID    string               `json:"user_id"`
	Tier      constants.MemberTier `json:"tier"`
	ExpiresAt int64                `json:"expires_at"`
}

// AdvanceFlowRequest moves the assessment flow one step forward.
type AdvanceFlowRequest struct {
	Target constants.FlowState `json:"target" binding:"required"`
}

// AnswerRequest submits one assessment answer.
type AnswerRequest struct {
	QuestionID string      `json:"question_id" binding:"required"`
	Answer     interface{} `json:"answer" binding:"required"`
}

// FlowStatus is the client view of an assessment flow.
type FlowStatus struct {
	SessionID      string              `json:"session_id"`
	State          constants.FlowState `json:"state"`
	QuestionIndex  int                 `json:"question_index"`
	TotalQuestions int                 `json:"total_questions"`
	Done           bool                `json:"done"`
}

// FlowStatusFrom converts a flow record.
func FlowStatusFrom(f *models.AssessmentFlow) *FlowStatus {
	return &FlowStatus{
		SessionID:      f.SessionID,
		State:          f.State,
		QuestionIndex:  f.QuestionIndex,
		TotalQuestions: f.TotalQuestions,
		Done:           f.Done(),
	}
}

// AssetRequest creates or updates a Crown Vault asset via the backend.
type AssetRequest struct {
	Name      string  `json:"name" binding:"required"`
	Category  string  `json:"category" binding:"required"`
	Value     float64 `json:"value" binding:"gte=0"`
	Currency  string  `json:"currency" binding:"required,len=3"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HeirRequest designates an heir on an asset.
type HeirRequest struct {
	Name         string  `json:"name" binding:"required"`
	Relationship string  `json:"relationship" binding:"required"`
	SharePercent float64 `json:"share_percent" binding:"gt=0,lte=100"`
}

// DashboardResponse wraps the dashboard payload with a staleness marker so
// the frontend can badge fallback data.
type DashboardResponse struct {
	Dashboard *models.Dashboard `json:"dashboard"`
	Stale     bool              `json:"stale"`
}

// OpportunitiesResponse wraps the opportunity list with a staleness marker.
type OpportunitiesResponse struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Stale         bool                 `json:"stale"`
}

// MarkReadRequest marks inbox entries read.
type MarkReadRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// WebhookAck is returned to the payment provider.
type WebhookAck struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}
