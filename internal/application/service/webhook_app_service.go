package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/repository"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/crypto"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// pathWebhookForward is where verified payment events land on the backend.
const pathWebhookForward = "/api/payments/webhooks/razorpay"

// WebhookAppService verifies, journals, and forwards payment webhooks. The
// journal is the gateway's only durable state: a signed event is never lost
// even when the backend is down at delivery time.
type WebhookAppService interface {
	// Process handles one incoming provider delivery. Replays of an already
	// processed event id are acknowledged without side effects.
	Process(ctx context.Context, provider, signature string, payload []byte) (*dto.WebhookAck, error)

	// ReplayPending re-forwards journaled events that never reached the
	// backend. Returns the number forwarded.
	ReplayPending(ctx context.Context, limit int) (int, error)
}

// webhookEnvelope is the minimal provider payload shape the gateway reads.
// Everything else passes through opaque.
type webhookEnvelope struct {
	EventID string `json:"event_id"`
	Event   string `json:"event"`
}

type webhookAppServiceImpl struct {
	backend *upstream.Client
	secrets domainService.SecretProvider
	cache   domainService.CacheManager
	repo    repository.WebhookEventRepository
	events  domainService.EventProducer
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewWebhookAppService creates the webhook application service.
func NewWebhookAppService(
	backend *upstream.Client,
	secrets domainService.SecretProvider,
	cache domainService.CacheManager,
	repo repository.WebhookEventRepository,
	events domainService.EventProducer,
	metrics *monitoring.Metrics,
	log logger.Logger,
) WebhookAppService {
	return &webhookAppServiceImpl{
		backend: backend,
		secrets: secrets,
		cache:   cache,
		repo:    repo,
		events:  events,
		metrics: metrics,
		logger:  log.WithComponent("WebhookAppService"),
	}
}

func (s *webhookAppServiceImpl) Process(ctx context.Context, provider, signature string, payload []byte) (*dto.WebhookAck, error) {
	secret, err := s.secrets.WebhookSecret(ctx)
	if err != nil {
		return nil, err
	}
	if !crypto.VerifyWebhookSignature(payload, signature, secret) {
		s.metrics.RecordWebhook(provider, "signature_invalid")
		return nil, errors.ErrSignatureInvalid
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || env.EventID == "" {
		s.metrics.RecordWebhook(provider, "malformed")
		return nil, errors.ErrInvalidRequest.WithMessage("webhook payload missing event_id")
	}

	claimed, err := s.cache.SetNX(ctx, constants.CacheKeyWebhookEvent+env.EventID, 1, constants.WebhookReplayTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.metrics.RecordWebhook(provider, "replayed")
		return &dto.WebhookAck{Status: models.WebhookForwardReplayed, EventID: env.EventID}, nil
	}

	record := &models.WebhookEvent{
		EventID:       env.EventID,
		Provider:      provider,
		EventType:     env.Event,
		Payload:       payload,
		ForwardStatus: models.WebhookForwardPending,
		ReceivedAt:    time.Now(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		if errors.IsConflict(err) {
			// Redis lost the guard but the journal remembers.
			s.metrics.RecordWebhook(provider, "replayed")
			return &dto.WebhookAck{Status: models.WebhookForwardReplayed, EventID: env.EventID}, nil
		}
		return nil, err
	}

	status := models.WebhookForwardDone
	if err := s.forward(ctx, payload); err != nil {
		// Acknowledge anyway: the event is journaled and the admin CLI can
		// replay it once the backend recovers.
		s.logger.Warn(ctx, "webhook forward failed", logger.Error(err), logger.String("event_id", env.EventID))
		status = models.WebhookForwardFailed
	}
	if err := s.repo.MarkForwarded(ctx, env.EventID, status); err != nil {
		s.logger.Warn(ctx, "webhook journal update failed", logger.Error(err), logger.String("event_id", env.EventID))
	}
	s.metrics.RecordWebhook(provider, status)

	s.publish(ctx, env, provider)
	return &dto.WebhookAck{Status: status, EventID: env.EventID}, nil
}

func (s *webhookAppServiceImpl) ReplayPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	forwarded := 0
	for i := range pending {
		ev := &pending[i]
		if err := s.forward(ctx, ev.Payload); err != nil {
			s.logger.Warn(ctx, "webhook replay failed", logger.Error(err), logger.String("event_id", ev.EventID))
			continue
		}
		if err := s.repo.MarkForwarded(ctx, ev.EventID, models.WebhookForwardDone); err != nil {
			return forwarded, err
		}
		forwarded++
	}
	return forwarded, nil
}

func (s *webhookAppServiceImpl) forward(ctx context.Context, payload []byte) error {
	resp, err := s.backend.Do(ctx, http.MethodPost, pathWebhookForward, bytes.NewReader(payload),
		upstream.WithHeader("Content-Type", "application/json"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.UpstreamStatus(resp.StatusCode, "")
	}
	return nil
}

func (s *webhookAppServiceImpl) publish(ctx context.Context, env webhookEnvelope, provider string) {
	event := &models.PlatformEvent{
		EventID:   uuid.NewString(),
		Type:      models.EventWebhookReceived,
		Resource:  env.EventID,
		Detail:    provider + ":" + env.Event,
		RequestID: requestIDFrom(ctx),
		CreatedAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "event publish failed", logger.Error(err), logger.String("type", event.Type))
	}
}
