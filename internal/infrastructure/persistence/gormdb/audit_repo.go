package gormdb

import (
	"context"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/repository"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type auditRepo struct {
	conn *DBConnection
	log  logger.Logger
}

// NewAuditRepository creates the GORM-backed platform event journal.
func NewAuditRepository(conn *DBConnection, log logger.Logger) repository.AuditRepository {
	return &auditRepo{conn: conn, log: log.WithComponent("AuditRepository")}
}

func (r *auditRepo) Save(ctx context.Context, event *models.PlatformEvent) error {
	if err := r.conn.DB.WithContext(ctx).Create(event).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to journal platform event")
	}
	return nil
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.PlatformEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.PlatformEvent
	err := r.conn.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list platform events")
	}
	return events, nil
}
