package models

import "time"

// Asset is a Crown Vault asset as surfaced to the frontend. The backend owns
// the record; the gateway reshapes its envelope.
type Asset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Value     float64   `json:"value"`
	Currency  string    `json:"currency"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heirs     []Heir    `json:"heirs,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Heir is a designated inheritor of a Crown Vault asset.
type Heir struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Relationship string  `json:"relationship"`
	SharePercent float64 `json:"share_percent"`
}
