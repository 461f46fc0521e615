// Package utils provides small shared helpers.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// MaskSecret returns a log-safe form of a secret, keeping only the first and
// last four characters.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// NewRequestID generates a correlation id for a request or event.
func NewRequestID() string {
	return uuid.NewString()
}

// FirstNonEmpty returns the first non-empty string of its arguments.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
