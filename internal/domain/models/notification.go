package models

import "time"

// Notification is an inbox entry proxied from the backend.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxCounts summarizes the notification inbox. Served zeroed as a fallback
// when the backend is unreachable so the UI never crashes.
type InboxCounts struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
