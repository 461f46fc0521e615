package models

import "time"

// Platform event types emitted to Kafka and journaled locally.
const (
	EventLogin               = "auth.login"
	EventLogout              = "auth.logout"
	EventSessionRefresh      = "auth.session_refresh"
	EventAssessmentStarted   = "assessment.started"
	EventAssessmentCompleted = "assessment.completed"
	EventNotificationRead    = "notification.read"
	EventWebhookReceived     = "webhook.received"
	EventReportGenerated     = "report.generated"
)

// PlatformEvent is an activity record for auditing and downstream consumers.
type PlatformEvent struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	EventID   string    `gorm:"uniqueIndex;size:64" json:"event_id"`
	Type      string    `gorm:"size:64;index" json:"type"`
	UserID    string    `gorm:"size:64;index" json:"user_id,omitempty"`
	Resource  string    `gorm:"size:128" json:"resource,omitempty"`
	Detail    string    `gorm:"size:512" json:"detail,omitempty"`
	RequestID string    `gorm:"size:64" json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
