package service

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Backend notification endpoints.
const (
	pathInbox       = "/api/notifications"
	pathInboxCounts = "/api/notifications/counts"
	pathInboxRead   = "/api/notifications/read"
)

// NotificationAppService proxies the notification inbox. Counts degrade to a
// zeroed payload when the backend is down so the navigation badge never
// breaks the shell.
type NotificationAppService interface {
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	Counts(ctx context.Context, userID string) (*models.InboxCounts, error)
	MarkRead(ctx context.Context, userID string, req *dto.MarkReadRequest) error
}

type notificationAppServiceImpl struct {
	backend *upstream.Client
	events  domainService.EventProducer
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewNotificationAppService creates the notification application service.
func NewNotificationAppService(
	backend *upstream.Client,
	events domainService.EventProducer,
	metrics *monitoring.Metrics,
	log logger.Logger,
) NotificationAppService {
	return &notificationAppServiceImpl{
		backend: backend,
		events:  events,
		metrics: metrics,
		logger:  log.WithComponent("NotificationAppService"),
	}
}

func (s *notificationAppServiceImpl) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}

	var items []models.Notification
	if err := s.backend.GetJSON(ctx, pathInbox, &items, upstream.WithUser(userID), upstream.WithQuery(q)); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

func (s *notificationAppServiceImpl) Counts(ctx context.Context, userID string) (*models.InboxCounts, error) {
	var counts models.InboxCounts
	if err := s.backend.GetJSON(ctx, pathInboxCounts, &counts, upstream.WithUser(userID)); err != nil {
		if errors.IsUpstreamUnavailable(err) {
			s.metrics.RecordFallback("inbox_counts")
			return &models.InboxCounts{}, nil
		}
		return nil, err
	}
	return &counts, nil
}

func (s *notificationAppServiceImpl) MarkRead(ctx context.Context, userID string, req *dto.MarkReadRequest) error {
	if err := s.backend.PostJSON(ctx, pathInboxRead, req, nil, upstream.WithUser(userID)); err != nil {
		return err
	}

	event := &models.PlatformEvent{
		EventID:   uuid.NewString(),
		Type:      models.EventNotificationRead,
		UserID:    userID,
		Detail:    strconv.Itoa(len(req.IDs)),
		RequestID: requestIDFrom(ctx),
		CreatedAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "event publish failed", logger.Error(err), logger.String("type", event.Type))
	}
	return nil
}
