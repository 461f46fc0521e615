package repository

import (
	"context"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
)

// AuditRepository journals platform events locally, alongside the Kafka
// producer, so activity survives broker outages.
type AuditRepository interface {
	// Save persists a platform event.
	Save(ctx context.Context, event *models.PlatformEvent) error

	// ListByUser returns the most recent events for a user.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PlatformEvent, error)
}
