// Package service defines the domain-level ports implemented by the
// infrastructure layer.
package service

import (
	"context"
	"time"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/pkg/constants"
)

// SessionTokenService mints and verifies gateway session tokens.
type SessionTokenService interface {
	// Issue creates a signed session token for the user.
	Issue(ctx context.Context, userID string, tier constants.MemberTier) (string, *models.Session, error)

	// Verify validates a token's signature and claims and returns the session.
	Verify(ctx context.Context, token string) (*models.Session, error)
}

// SessionBlacklist stores revoked session jtis until their natural expiry.
type SessionBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RateLimitService enforces per-scope request limits.
type RateLimitService interface {
	// Allow reports whether one request for the identifier may proceed,
	// together with the remaining budget and, when denied, a retry-after hint.
	Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (allowed bool, remaining int64, retryAfter time.Duration, err error)

	// Reset clears the counter for an identifier.
	Reset(ctx context.Context, scope constants.RateLimitScope, identifier string) error
}

// FlowStore persists assessment flow records with a TTL.
type FlowStore interface {
	Get(ctx context.Context, sessionID string) (*models.AssessmentFlow, error)
	Put(ctx context.Context, flow *models.AssessmentFlow) error
	Delete(ctx context.Context, sessionID string) error

	// TryStart atomically claims the start guard for a user. Returns false
	// with the existing session id when a live flow already exists.
	TryStart(ctx context.Context, userID, sessionID string) (bool, string, error)

	// ReleaseStart drops the start guard, allowing a fresh flow.
	ReleaseStart(ctx context.Context, userID string) error
}

// CacheManager is the shared L2 response cache.
type CacheManager interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// SetNX sets the key only if absent. Used for replay and start guards.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

// EventProducer publishes platform events to the event bus.
type EventProducer interface {
	Publish(ctx context.Context, event *models.PlatformEvent) error
	Close() error
}

// SecretProvider resolves runtime secrets (session signing key, webhook
// secret) from Vault or config.
type SecretProvider interface {
	SessionSecret(ctx context.Context) ([]byte, error)
	WebhookSecret(ctx context.Context) (string, error)
}
