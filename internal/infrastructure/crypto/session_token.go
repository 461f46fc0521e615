// Package crypto implements session token signing and webhook signature
// verification.
package crypto

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// sessionClaims is the gateway session JWT payload.
type sessionClaims struct {
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

// SessionTokenManager mints and verifies HS256 session tokens. The signing
// key comes from the secret provider (Vault or config) and is resolved once
// at construction.
type SessionTokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	logger   logger.Logger
}

var _ service.SessionTokenService = (*SessionTokenManager)(nil)

// NewSessionTokenManager creates a token manager.
func NewSessionTokenManager(ctx context.Context, cfg *config.AuthConfig, secrets service.SecretProvider, log logger.Logger) (*SessionTokenManager, error) {
	secret, err := secrets.SessionSecret(ctx)
	if err != nil {
		return nil, err
	}
	ttl := cfg.SessionTTLDuration()
	if ttl <= 0 {
		ttl = constants.SessionTokenDefaultTTL
	}
	return &SessionTokenManager{
		secret:   secret,
		issuer:   cfg.SessionIssuer,
		audience: cfg.SessionAudience,
		ttl:      ttl,
		logger:   log.WithComponent("SessionTokenManager"),
	}, nil
}

// Issue creates a signed session token for the user.
func (m *SessionTokenManager) Issue(ctx context.Context, userID string, tier constants.MemberTier) (string, *models.Session, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := sessionClaims{
		Tier: string(tier),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, errors.ErrInternal.WithError(err)
	}

	return signed, &models.Session{
		UserID:    userID,
		Tier:      tier,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}, nil
}

// Verify validates a session token and returns the session it represents.
func (m *SessionTokenManager) Verify(ctx context.Context, tokenStr string) (*models.Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrUnauthorized.WithMessage("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.ErrUnauthorized.WithError(err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, errors.ErrUnauthorized.WithMessage("invalid session token claims")
	}

	return &models.Session{
		UserID:    claims.Subject,
		Tier:      constants.MemberTier(claims.Tier),
		JTI:       claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TTL returns the configured session lifetime.
func (m *SessionTokenManager) TTL() time.Duration {
	return m.ttl
}
