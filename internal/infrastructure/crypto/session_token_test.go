package crypto

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type staticSecrets struct {
	session []byte
	webhook string
}

func (s *staticSecrets) SessionSecret(ctx context.Context) ([]byte, error) { return s.session, nil }
func (s *staticSecrets) WebhookSecret(ctx context.Context) (string, error) {
	return s.webhook, nil
}

func newTestManager(t *testing.T, ttl int) *SessionTokenManager {
	t.Helper()
	cfg := &config.AuthConfig{
		SessionTTL:      ttl,
		SessionIssuer:   "hnwi-gateway",
		SessionAudience: "hnwi-platform",
	}
	m, err := NewSessionTokenManager(context.Background(),
		cfg, &staticSecrets{session: []byte("0123456789abcdef0123456789abcdef")}, logger.NewNoopLogger())
	require.NoError(t, err)
	return m
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := newTestManager(t, 1800)
	ctx := context.Background()

	token, session, err := m.Issue(ctx, "user-42", constants.TierPremium)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "user-42", session.UserID)
	assert.NotEmpty(t, session.JTI)

	verified, err := m.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", verified.UserID)
	assert.Equal(t, constants.TierPremium, verified.Tier)
	assert.Equal(t, session.JTI, verified.JTI)
	assert.WithinDuration(t, session.ExpiresAt, verified.ExpiresAt, time.Second)
}

func TestSessionTokenRejections(t *testing.T) {
	m := newTestManager(t, 1800)
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		_, err := m.Verify(ctx, "not.a.token")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, _, err := m.Issue(ctx, "user-42", constants.TierStandard)
		require.NoError(t, err)

		other := newTestManager(t, 1800)
		other.secret = []byte("a completely different secret!!!")
		_, err = other.Verify(ctx, token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		short := newTestManager(t, 1800)
		short.ttl = -time.Minute
		token, _, err := short.Issue(ctx, "user-42", constants.TierStandard)
		require.NoError(t, err)

		_, err = m.Verify(ctx, token)
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := newTestManager(t, 1800)
		other.audience = "someone-else"
		token, _, err := other.Issue(ctx, "user-42", constants.TierStandard)
		require.NoError(t, err)

		_, err = m.Verify(ctx, token)
		assert.Error(t, err)
	})

	t.Run("unsigned algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "hnwi-gateway",
			Audience:  jwt.ClaimStrings{"hnwi-platform"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Verify(ctx, token)
		assert.Error(t, err)
	})
}

func TestWebhookSignature(t *testing.T) {
	body := []byte(`{"event_id":"evt_1","event":"payment.captured"}`)
	secret := "whsec_test"

	sig := SignWebhookPayload(body, secret)

	assert.True(t, VerifyWebhookSignature(body, sig, secret))
	assert.False(t, VerifyWebhookSignature(body, sig, "other-secret"))
	assert.False(t, VerifyWebhookSignature([]byte("tampered"), sig, secret))
	assert.False(t, VerifyWebhookSignature(body, "", secret))
	assert.False(t, VerifyWebhookSignature(body, sig, ""))
}
