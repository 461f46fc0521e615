package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Backend assessment endpoints.
const (
	pathAssessmentSessions = "/api/assessment/sessions"
	pathAssessmentSession  = "/api/assessment/sessions/%s"
	pathAssessmentAnswers  = "/api/assessment/sessions/%s/answers"
	pathAssessmentComplete = "/api/assessment/sessions/%s/complete"
	pathAssessmentStream   = "/api/assessment/sessions/%s/stream"
)

// AssessmentAppService drives the forward-only wealth assessment flow.
type AssessmentAppService interface {
	// Start claims a new flow for the user, or returns the live one when a
	// flow already exists.
	Start(ctx context.Context, userID string) (*dto.FlowStatus, error)

	// Status returns the current flow state. Concurrent lookups for the
	// same session collapse into one store read.
	Status(ctx context.Context, userID, sessionID string) (*dto.FlowStatus, error)

	// Advance moves the flow exactly one step forward.
	Advance(ctx context.Context, userID, sessionID string, target constants.FlowState) (*dto.FlowStatus, error)

	// Answer records one answer and forwards it to the backend.
	Answer(ctx context.Context, userID, sessionID string, req *dto.AnswerRequest) (*dto.FlowStatus, error)

	// Complete finishes the question loop and enters the digital twin wait.
	Complete(ctx context.Context, userID, sessionID string) (*dto.FlowStatus, error)

	// Stream opens the backend's digital twin progress stream for relaying.
	Stream(ctx context.Context, userID, sessionID string) (*http.Response, error)
}

// upstreamStartResponse is the backend's reply when a session is registered.
type upstreamStartResponse struct {
	TotalQuestions int `json:"total_questions"`
}

type assessmentAppServiceImpl struct {
	backend *upstream.Client
	flows   domainService.FlowStore
	events  domainService.EventProducer
	group   singleflight.Group
	logger  logger.Logger
}

// NewAssessmentAppService creates the assessment application service.
func NewAssessmentAppService(
	backend *upstream.Client,
	flows domainService.FlowStore,
	events domainService.EventProducer,
	log logger.Logger,
) AssessmentAppService {
	return &assessmentAppServiceImpl{
		backend: backend,
		flows:   flows,
		events:  events,
		logger:  log.WithComponent("AssessmentAppService"),
	}
}

func (s *assessmentAppServiceImpl) Start(ctx context.Context, userID string) (*dto.FlowStatus, error) {
	sessionID := uuid.NewString()

	claimed, existingID, err := s.flows.TryStart(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// A live flow exists: starting is idempotent, hand it back.
		flow, err := s.flows.Get(ctx, existingID)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, errors.ErrConflict.WithMessage("assessment already starting, retry shortly")
			}
			return nil, err
		}
		return dto.FlowStatusFrom(flow), nil
	}

	body := map[string]string{"session_id": sessionID}
	var resp upstreamStartResponse
	if err := s.backend.PostJSON(ctx, pathAssessmentSessions, body, &resp, upstream.WithUser(userID)); err != nil {
		// Release the guard so the user can retry.
		if relErr := s.flows.ReleaseStart(ctx, userID); relErr != nil {
			s.logger.Warn(ctx, "flow guard cleanup failed", logger.Error(relErr))
		}
		return nil, err
	}

	flow := models.NewAssessmentFlow(sessionID, userID, resp.TotalQuestions, time.Now())
	if err := s.flows.Put(ctx, flow); err != nil {
		// Without a record the guard would block retries until it expires.
		if relErr := s.flows.ReleaseStart(ctx, userID); relErr != nil {
			s.logger.Warn(ctx, "flow guard cleanup failed", logger.Error(relErr))
		}
		return nil, err
	}

	s.publish(ctx, models.EventAssessmentStarted, userID, sessionID)
	return dto.FlowStatusFrom(flow), nil
}

func (s *assessmentAppServiceImpl) Status(ctx context.Context, userID, sessionID string) (*dto.FlowStatus, error) {
	v, err, _ := s.group.Do(sessionID, func() (interface{}, error) {
		return s.flows.Get(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	flow := v.(*models.AssessmentFlow)
	if flow.UserID != userID {
		return nil, errors.ErrForbidden
	}
	return dto.FlowStatusFrom(flow), nil
}

func (s *assessmentAppServiceImpl) Advance(ctx context.Context, userID, sessionID string, target constants.FlowState) (*dto.FlowStatus, error) {
	return s.mutate(ctx, userID, sessionID, func(flow *models.AssessmentFlow) error {
		return flow.AdvanceTo(target, time.Now())
	})
}

func (s *assessmentAppServiceImpl) Answer(ctx context.Context, userID, sessionID string, req *dto.AnswerRequest) (*dto.FlowStatus, error) {
	flow, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := flow.RecordAnswer(time.Now()); err != nil {
		return nil, err
	}

	// Forward before persisting: a rejected answer must leave the cursor
	// where it was so the question can be retried.
	path := fmt.Sprintf(pathAssessmentAnswers, sessionID)
	if err := s.backend.PostJSON(ctx, path, req, nil, upstream.WithUser(userID)); err != nil {
		return nil, err
	}

	if err := s.flows.Put(ctx, flow); err != nil {
		return nil, err
	}
	return dto.FlowStatusFrom(flow), nil
}

func (s *assessmentAppServiceImpl) Complete(ctx context.Context, userID, sessionID string) (*dto.FlowStatus, error) {
	flow, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := flow.Complete(time.Now()); err != nil {
		return nil, err
	}

	// The terminal transition is only recorded once the backend has accepted
	// it; a failed forward leaves the flow completable on retry.
	path := fmt.Sprintf(pathAssessmentComplete, sessionID)
	if err := s.backend.PostJSON(ctx, path, nil, nil, upstream.WithUser(userID)); err != nil {
		return nil, err
	}

	if err := s.flows.Put(ctx, flow); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventAssessmentCompleted, userID, sessionID)
	return dto.FlowStatusFrom(flow), nil
}

func (s *assessmentAppServiceImpl) Stream(ctx context.Context, userID, sessionID string) (*http.Response, error) {
	if _, err := s.load(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	path := fmt.Sprintf(pathAssessmentStream, sessionID)
	resp, err := s.backend.Stream(ctx, path, upstream.WithUser(userID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.UpstreamStatus(resp.StatusCode, "")
	}
	return resp, nil
}

// load fetches the flow and checks ownership.
func (s *assessmentAppServiceImpl) load(ctx context.Context, userID, sessionID string) (*models.AssessmentFlow, error) {
	flow, err := s.flows.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if flow.UserID != userID {
		return nil, errors.ErrForbidden
	}
	return flow, nil
}

// mutate loads the flow, applies a local-only change, and saves.
func (s *assessmentAppServiceImpl) mutate(ctx context.Context, userID, sessionID string, fn func(*models.AssessmentFlow) error) (*dto.FlowStatus, error) {
	flow, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(flow); err != nil {
		return nil, err
	}
	if err := s.flows.Put(ctx, flow); err != nil {
		return nil, err
	}
	return dto.FlowStatusFrom(flow), nil
}

func (s *assessmentAppServiceImpl) publish(ctx context.Context, eventType, userID, sessionID string) {
	event := &models.PlatformEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Resource:  sessionID,
		RequestID: requestIDFrom(ctx),
		CreatedAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "event publish failed", logger.Error(err), logger.String("type", eventType))
	}
}
