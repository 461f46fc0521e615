package gormdb

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/repository"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type webhookEventRepo struct {
	conn *DBConnection
	log  logger.Logger
}

// NewWebhookEventRepository creates the GORM-backed webhook journal.
func NewWebhookEventRepository(conn *DBConnection, log logger.Logger) repository.WebhookEventRepository {
	return &webhookEventRepo{conn: conn, log: log.WithComponent("WebhookEventRepository")}
}

func (r *webhookEventRepo) Save(ctx context.Context, event *models.WebhookEvent) error {
	err := r.conn.DB.WithContext(ctx).Create(event).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrConflict.WithMessage("webhook event already journaled: %s", event.EventID)
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to journal webhook event")
	}
	return nil
}

func (r *webhookEventRepo) FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.conn.DB.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound.WithMessage("webhook event not found: %s", eventID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load webhook event")
	}
	return &event, nil
}

func (r *webhookEventRepo) MarkForwarded(ctx context.Context, eventID string, status string) error {
	now := time.Now()
	res := r.conn.DB.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{"forward_status": status, "forwarded_at": &now})
	if res.Error != nil {
		return errors.Wrap(res.Error, errors.ErrCodeInternal, "failed to update webhook event")
	}
	if res.RowsAffected == 0 {
		return errors.ErrNotFound.WithMessage("webhook event not found: %s", eventID)
	}
	return nil
}

func (r *webhookEventRepo) ListPending(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.WebhookEvent
	err := r.conn.DB.WithContext(ctx).
		Where("forward_status IN ?", []string{models.WebhookForwardPending, models.WebhookForwardFailed}).
		Order("received_at asc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list pending webhook events")
	}
	return events, nil
}
