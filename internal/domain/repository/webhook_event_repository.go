// Package repository defines the persistence contracts for the small amount
// of state the gateway owns. Everything else lives in the upstream backend.
package repository

import (
	"context"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
)

// WebhookEventRepository stores journaled payment webhooks.
type WebhookEventRepository interface {
	// Save persists a new webhook event. Returns a conflict error when the
	// event id was already journaled.
	Save(ctx context.Context, event *models.WebhookEvent) error

	// FindByEventID looks up a journaled event.
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)

	// MarkForwarded records the forward outcome for an event.
	MarkForwarded(ctx context.Context, eventID string, status string) error

	// ListPending returns events whose forward to the backend has not
	// succeeded, oldest first.
	ListPending(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}
