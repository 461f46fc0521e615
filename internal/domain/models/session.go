package models

import (
	"time"

	"github.com/montrose/hnwi-gateway/pkg/constants"
)

// Session is the authenticated gateway session derived from a verified
// session token. Durable identity lives in the upstream backend; this is the
// gateway's view of it.
type Session struct {
	UserID    string
	Tier      constants.MemberTier
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HasTier reports whether the session tier grants at least the given tier.
func (s *Session) HasTier(tier constants.MemberTier) bool {
	rank := map[constants.MemberTier]int{
		constants.TierStandard: 0,
		constants.TierPremium:  1,
		constants.TierCrown:    2,
	}
	return rank[s.Tier] >= rank[tier]
}
