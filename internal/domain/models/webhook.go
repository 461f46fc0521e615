package models

import "time"

// Webhook forward outcomes recorded in the journal.
const (
	WebhookForwardPending  = "pending"
	WebhookForwardDone     = "forwarded"
	WebhookForwardFailed   = "failed"
	WebhookForwardReplayed = "replayed"
)

// WebhookEvent is a journaled payment webhook. This journal is the only
// durable state the gateway owns; it exists so signed events survive backend
// outages and can be replayed by the admin CLI.
type WebhookEvent struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	EventID       string     `gorm:"uniqueIndex;size:128" json:"event_id"`
	Provider      string     `gorm:"size:32;index" json:"provider"`
	EventType     string     `gorm:"size:64" json:"event_type"`
	Payload       []byte     `json:"-"`
	ForwardStatus string     `gorm:"size:16;index" json:"forward_status"`
	ReceivedAt    time.Time  `json:"received_at"`
	ForwardedAt   *time.Time `json:"forwarded_at,omitempty"`
}
