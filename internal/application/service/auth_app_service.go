// Package service provides application-level services that orchestrate the
// upstream backend, domain services, and repositories.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/repository"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Backend auth endpoints.
const (
	pathLogin   = "/api/auth/login"
	pathMFA     = "/api/auth/mfa/verify"
	pathRefresh = "/api/auth/refresh"
	pathLogout  = "/api/auth/logout"
)

// AuthTokens carries the cookie material produced by a successful
// authentication. Handlers turn these into httpOnly cookies.
type AuthTokens struct {
	SessionToken string
	RefreshToken string
	SessionTTL   time.Duration
	RefreshTTL   time.Duration
}

// AuthAppService handles login, MFA, session refresh, and logout.
type AuthAppService interface {
	// Login forwards credentials to the backend. When MFA is required the
	// result carries the challenge and tokens are nil.
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResult, *AuthTokens, error)

	// VerifyMFA completes a pending challenge and mints the session.
	VerifyMFA(ctx context.Context, req *dto.MFARequest) (*dto.LoginResult, *AuthTokens, error)

	// Refresh exchanges the refresh token for a fresh session. A transient
	// backend failure is retried once before giving up.
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResult, *AuthTokens, error)

	// Logout revokes the session and notifies the backend.
	Logout(ctx context.Context, session *models.Session, refreshToken string) error
}

// upstreamAuthResponse is the backend's shape for all auth operations.
type upstreamAuthResponse struct {
	UserID       string `json:"user_id"`
	Tier         string `json:"tier"`
	MFARequired  bool   `json:"mfa_required"`
	ChallengeID  string `json:"challenge_id"`
	RefreshToken string `json:"refresh_token"`
}

type authAppServiceImpl struct {
	backend    *upstream.Client
	tokens     domainService.SessionTokenService
	blacklist  domainService.SessionBlacklist
	events     domainService.EventProducer
	audit      repository.AuditRepository
	refreshTTL time.Duration
	logger     logger.Logger
}

// NewAuthAppService creates the auth application service.
func NewAuthAppService(
	backend *upstream.Client,
	tokens domainService.SessionTokenService,
	blacklist domainService.SessionBlacklist,
	events domainService.EventProducer,
	audit repository.AuditRepository,
	refreshTTL time.Duration,
	log logger.Logger,
) AuthAppService {
	if refreshTTL <= 0 {
		refreshTTL = constants.RefreshTokenDefaultTTL
	}
	return &authAppServiceImpl{
		backend:    backend,
		tokens:     tokens,
		blacklist:  blacklist,
		events:     events,
		audit:      audit,
		refreshTTL: refreshTTL,
		logger:     log.WithComponent("AuthAppService"),
	}
}

func (s *authAppServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResult, *AuthTokens, error) {
	var resp upstreamAuthResponse
	if err := s.backend.PostJSON(ctx, pathLogin, req, &resp); err != nil {
		return nil, nil, err
	}

	if resp.MFARequired {
		return &dto.LoginResult{
			UserID:      resp.UserID,
			MFARequired: true,
			ChallengeID: resp.ChallengeID,
		}, nil, nil
	}
	return s.mintSession(ctx, &resp, models.EventLogin)
}

func (s *authAppServiceImpl) VerifyMFA(ctx context.Context, req *dto.MFARequest) (*dto.LoginResult, *AuthTokens, error) {
	var resp upstreamAuthResponse
	if err := s.backend.PostJSON(ctx, pathMFA, req, &resp); err != nil {
		return nil, nil, err
	}
	return s.mintSession(ctx, &resp, models.EventLogin)
}

func (s *authAppServiceImpl) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResult, *AuthTokens, error) {
	if refreshToken == "" {
		return nil, nil, errors.ErrUnauthorized.WithMessage("missing refresh token")
	}

	body := map[string]string{"refresh_token": refreshToken}
	var resp upstreamAuthResponse
	err := s.backend.PostJSON(ctx, pathRefresh, body, &resp)
	if errors.IsUpstreamUnavailable(err) {
		s.logger.Warn(ctx, "refresh failed, retrying once", logger.Error(err))
		err = s.backend.PostJSON(ctx, pathRefresh, body, &resp)
	}
	if err != nil {
		return nil, nil, err
	}
	return s.mintSession(ctx, &resp, models.EventSessionRefresh)
}

func (s *authAppServiceImpl) Logout(ctx context.Context, session *models.Session, refreshToken string) error {
	ttl := time.Until(session.ExpiresAt)
	if err := s.blacklist.Revoke(ctx, session.JTI, ttl); err != nil {
		return err
	}

	// Best effort: the session is already dead locally even if the backend
	// never hears about it.
	if refreshToken != "" {
		body := map[string]string{"refresh_token": refreshToken}
		if err := s.backend.PostJSON(ctx, pathLogout, body, nil, upstream.WithUser(session.UserID)); err != nil {
			s.logger.Warn(ctx, "backend logout failed", logger.Error(err), logger.String("user_id", session.UserID))
		}
	}

	s.record(ctx, models.EventLogout, session.UserID, "")
	return nil
}

// mintSession issues the gateway session token from a verified backend
// identity and assembles cookie material.
func (s *authAppServiceImpl) mintSession(ctx context.Context, resp *upstreamAuthResponse, eventType string) (*dto.LoginResult, *AuthTokens, error) {
	if resp.UserID == "" {
		return nil, nil, errors.ErrUpstreamUnavailable.WithMessage("backend returned no user identity")
	}

	tier := constants.MemberTier(resp.Tier)
	switch tier {
	case constants.TierStandard, constants.TierPremium, constants.TierCrown:
	default:
		tier = constants.TierStandard
	}

	token, session, err := s.tokens.Issue(ctx, resp.UserID, tier)
	if err != nil {
		return nil, nil, err
	}

	s.record(ctx, eventType, resp.UserID, "")

	result := &dto.LoginResult{
		UserID:       resp.UserID,
		Tier:         tier,
		SessionValid: true,
	}
	tokens := &AuthTokens{
		SessionToken: token,
		RefreshToken: resp.RefreshToken,
		SessionTTL:   time.Until(session.ExpiresAt),
		RefreshTTL:   s.refreshTTL,
	}
	return result, tokens, nil
}

// record journals a platform event and publishes it. Failures are logged,
// never surfaced: auditing must not break auth.
func (s *authAppServiceImpl) record(ctx context.Context, eventType, userID, detail string) {
	event := &models.PlatformEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Detail:    detail,
		RequestID: requestIDFrom(ctx),
		CreatedAt: time.Now(),
	}
	if err := s.audit.Save(ctx, event); err != nil {
		s.logger.Warn(ctx, "audit save failed", logger.Error(err), logger.String("type", eventType))
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "event publish failed", logger.Error(err), logger.String("type", eventType))
	}
}

func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}
