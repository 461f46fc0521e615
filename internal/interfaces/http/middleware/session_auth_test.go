package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/internal/config"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/crypto"
	redisstore "github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type staticSecrets struct{}

func (staticSecrets) SessionSecret(context.Context) ([]byte, error) {
	return []byte("0123456789abcdef0123456789abcdef"), nil
}

func (staticSecrets) WebhookSecret(context.Context) (string, error) {
	return "whsec_test", nil
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(context.Context, string, time.Duration) error {
	return errors.ErrInternal
}

func (failingBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.ErrInternal
}

func newTokenManager(t *testing.T) *crypto.SessionTokenManager {
	t.Helper()
	tm, err := crypto.NewSessionTokenManager(context.Background(), &config.AuthConfig{
		SessionTTL:      900,
		SessionIssuer:   "hnwi-gateway",
		SessionAudience: "hnwi-platform",
	}, staticSecrets{}, logger.NewNoopLogger())
	require.NoError(t, err)
	return tm
}

func authRouter(tokens domainService.SessionTokenService, blacklist domainService.SessionBlacklist, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{SessionAuth(tokens, blacklist, logger.NewNoopLogger())}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, SessionFrom(c).UserID)
	})
	r.GET("/protected", handlers...)
	return r
}

func doAuthRequest(r *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionAuth(t *testing.T) {
	tm := newTokenManager(t)
	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	blacklist := redisstore.NewSessionBlacklist(conn, logger.NewNoopLogger())

	t.Run("valid session passes with user in context", func(t *testing.T) {
		token, session, err := tm.Issue(context.Background(), "user-1", constants.TierPremium)
		require.NoError(t, err)
		require.NotEmpty(t, session.JTI)

		w := doAuthRequest(authRouter(tm, blacklist), token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1", w.Body.String())
	})

	t.Run("missing cookie is unauthorized", func(t *testing.T) {
		w := doAuthRequest(authRouter(tm, blacklist), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		w := doAuthRequest(authRouter(tm, blacklist), "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked session is refused", func(t *testing.T) {
		token, session, err := tm.Issue(context.Background(), "user-2", constants.TierStandard)
		require.NoError(t, err)
		require.NoError(t, blacklist.Revoke(context.Background(), session.JTI, time.Hour))

		w := doAuthRequest(authRouter(tm, blacklist), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unreadable blacklist fails closed", func(t *testing.T) {
		token, _, err := tm.Issue(context.Background(), "user-3", constants.TierStandard)
		require.NoError(t, err)

		w := doAuthRequest(authRouter(tm, failingBlacklist{}), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireTier(t *testing.T) {
	tm := newTokenManager(t)
	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	blacklist := redisstore.NewSessionBlacklist(conn, logger.NewNoopLogger())

	router := authRouter(tm, blacklist, RequireTier(constants.TierCrown))

	t.Run("crown member passes", func(t *testing.T) {
		token, _, err := tm.Issue(context.Background(), "user-1", constants.TierCrown)
		require.NoError(t, err)

		w := doAuthRequest(router, token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("standard member is forbidden", func(t *testing.T) {
		token, _, err := tm.Issue(context.Background(), "user-2", constants.TierStandard)
		require.NoError(t, err)

		w := doAuthRequest(router, token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
