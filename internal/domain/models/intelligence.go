package models

import "time"

// Dashboard is the aggregated intelligence payload shown on the home screen.
type Dashboard struct {
	NetWorth            float64   `json:"net_worth"`
	Currency            string    `json:"currency"`
	ActiveOpportunities int       `json:"active_opportunities"`
	UnreadIntel         int       `json:"unread_intel"`
	WeeklyActivity      int       `json:"weekly_activity"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Opportunity is an investment opportunity surfaced by the intelligence feed.
type Opportunity struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Region    string  `json:"region"`
	Value     float64 `json:"value"`
	Score     float64 `json:"score"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapMarker is a clustered, color-graded point rendered by the frontend map.
type MapMarker struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     float64 `json:"value"`
	Count     int     `json:"count"`
	Color     string  `json:"color"`
	Label     string  `json:"label,omitempty"`
}
