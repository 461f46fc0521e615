// Package constants defines system-wide constants for the HNWI intelligence
// platform gateway. This package provides type-safe constant definitions used
// across all modules.
package constants

import "time"

// ================================================================================
// Session Constants
// ================================================================================

// SessionCookieName is the httpOnly cookie carrying the gateway session JWT.
const SessionCookieName = "hnwi_session"

// RefreshCookieName is the httpOnly cookie carrying the backend refresh token.
const RefreshCookieName = "hnwi_refresh"

const (
	// SessionTokenDefaultTTL is the default lifetime of a gateway session token.
	SessionTokenDefaultTTL = 30 * time.Minute

	// RefreshTokenDefaultTTL is the default lifetime of the backend refresh token cookie.
	RefreshTokenDefaultTTL = 7 * 24 * time.Hour
)

// ================================================================================
// Member Tier Constants
// ================================================================================

// MemberTier represents the platform membership tier of a user.
type MemberTier string

const (
	// TierStandard is the entry tier.
	TierStandard MemberTier = "standard"

	// TierPremium unlocks the intelligence dashboard and reports.
	TierPremium MemberTier = "premium"

	// TierCrown unlocks Crown Vault estate features.
	TierCrown MemberTier = "crown"
)

// ================================================================================
// Assessment Flow Constants
// ================================================================================

// FlowState represents a stage of the wealth assessment flow.
type FlowState string

const (
	// FlowStateLanding is the initial stage before the flow begins.
	FlowStateLanding FlowState = "landing"

	// FlowStateMapIntro is the interactive map introduction stage.
	FlowStateMapIntro FlowState = "map_intro"

	// FlowStateAssessment is the question loop stage.
	FlowStateAssessment FlowState = "assessment"

	// FlowStateDigitalTwin is the terminal stage while the digital twin
	// simulation is produced by the backend.
	FlowStateDigitalTwin FlowState = "digital_twin"
)

// FlowStateTTL bounds how long an abandoned flow record is kept.
const FlowStateTTL = 24 * time.Hour

// ================================================================================
// Cache Key Prefixes
// ================================================================================

const (
	// CacheKeySessionBlacklist prefixes revoked session jti entries.
	CacheKeySessionBlacklist = "session:blacklist:"

	// CacheKeyFlow prefixes assessment flow records.
	CacheKeyFlow = "assessment:flow:"

	// CacheKeyFlowStart prefixes the start guard for assessment sessions.
	CacheKeyFlowStart = "assessment:start:"

	// CacheKeyDashboard prefixes cached dashboard payloads, per user.
	CacheKeyDashboard = "intel:dashboard:"

	// CacheKeyOpportunities prefixes cached opportunity lists, per user.
	CacheKeyOpportunities = "intel:opportunities:"

	// CacheKeyVaultAssets prefixes cached Crown Vault asset lists, per user.
	CacheKeyVaultAssets = "vault:assets:"

	// CacheKeyWebhookEvent prefixes the webhook replay guard.
	CacheKeyWebhookEvent = "webhook:event:"
)

const (
	// DashboardCacheTTL is the short TTL for dashboard payloads.
	DashboardCacheTTL = 2 * time.Minute

	// VaultAssetsCacheTTL is the TTL for Crown Vault asset lists.
	VaultAssetsCacheTTL = 5 * time.Minute

	// WebhookReplayTTL bounds how long processed webhook event ids are remembered.
	WebhookReplayTTL = 48 * time.Hour
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	// HeaderRequestID propagates the request correlation id.
	HeaderRequestID = "X-Request-ID"

	// HeaderRazorpaySignature carries the webhook HMAC signature.
	HeaderRazorpaySignature = "X-Razorpay-Signature"

	// HeaderRazorpayEventID carries the webhook event id used for replay protection.
	HeaderRazorpayEventID = "X-Razorpay-Event-Id"
)

// ================================================================================
// Rate Limit Constants
// ================================================================================

// RateLimitScope identifies the dimension a rate limit applies to.
type RateLimitScope string

const (
	// RateLimitScopeIP limits by client IP.
	RateLimitScopeIP RateLimitScope = "ip"

	// RateLimitScopeUser limits by authenticated user id.
	RateLimitScopeUser RateLimitScope = "user"

	// RateLimitScopeGlobal limits the whole service.
	RateLimitScopeGlobal RateLimitScope = "global"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values stored in a request context.
type ContextKey string

const (
	// ContextKeyRequestID stores the request correlation id.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyUserID stores the authenticated user id.
	ContextKeyUserID ContextKey = "user_id"

	// ContextKeySessionJTI stores the session token jti.
	ContextKeySessionJTI ContextKey = "session_jti"

	// ContextKeyTraceID stores the trace id for log enrichment.
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// Event Topics
// ================================================================================

const (
	// TopicPlatformEvents is the Kafka topic for platform activity events.
	TopicPlatformEvents = "hnwi.platform.events"
)
