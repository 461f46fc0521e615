package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/events"
	redisstore "github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type assessmentEnv struct {
	svc     AssessmentAppService
	starts  *atomic.Int32
	failing *atomic.Bool
}

func newAssessmentEnv(t *testing.T) *assessmentEnv {
	t.Helper()
	log := logger.NewNoopLogger()

	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	env := &assessmentEnv{starts: &atomic.Int32{}, failing: &atomic.Bool{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.failing.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/assessment/sessions":
			env.starts.Add(1)
			w.Write([]byte(`{"total_questions":3}`))
		case strings.HasSuffix(r.URL.Path, "/stream"):
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte("event: progress\ndata: {\"percent\":40}\n\n"))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	backend, err := upstream.NewClient(&config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5, StreamTimeout: 5}, testMetrics, log)
	require.NoError(t, err)

	env.svc = NewAssessmentAppService(backend, redisstore.NewFlowStore(conn, log), events.NewNoopProducer(), log)
	return env
}

// driveToAssessment starts a flow and advances it into the question loop.
func driveToAssessment(t *testing.T, svc AssessmentAppService, userID string) string {
	t.Helper()
	ctx := context.Background()

	status, err := svc.Start(ctx, userID)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, userID, status.SessionID, constants.FlowStateMapIntro)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, userID, status.SessionID, constants.FlowStateAssessment)
	require.NoError(t, err)
	return status.SessionID
}

func TestAssessmentStart(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a landing flow", func(t *testing.T) {
		env := newAssessmentEnv(t)

		status, err := env.svc.Start(ctx, "user-1")
		require.NoError(t, err)
		assert.NotEmpty(t, status.SessionID)
		assert.Equal(t, constants.FlowStateLanding, status.State)
		assert.Equal(t, 3, status.TotalQuestions)
		assert.False(t, status.Done)
	})

	t.Run("starting twice returns the live flow", func(t *testing.T) {
		env := newAssessmentEnv(t)

		first, err := env.svc.Start(ctx, "user-1")
		require.NoError(t, err)
		second, err := env.svc.Start(ctx, "user-1")
		require.NoError(t, err)

		assert.Equal(t, first.SessionID, second.SessionID)
		assert.Equal(t, int32(1), env.starts.Load())
	})

	t.Run("backend failure releases the start guard", func(t *testing.T) {
		env := newAssessmentEnv(t)

		env.failing.Store(true)
		_, err := env.svc.Start(ctx, "user-1")
		require.Error(t, err)
		assert.True(t, errors.IsUpstreamUnavailable(err))

		env.failing.Store(false)
		status, err := env.svc.Start(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, constants.FlowStateLanding, status.State)
	})
}

func TestAssessmentStatus(t *testing.T) {
	ctx := context.Background()
	env := newAssessmentEnv(t)

	started, err := env.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	t.Run("owner reads the flow", func(t *testing.T) {
		status, err := env.svc.Status(ctx, "user-1", started.SessionID)
		require.NoError(t, err)
		assert.Equal(t, started.SessionID, status.SessionID)
	})

	t.Run("other users are refused", func(t *testing.T) {
		_, err := env.svc.Status(ctx, "user-2", started.SessionID)
		require.Error(t, err)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeForbidden, appErr.Code)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		_, err := env.svc.Status(ctx, "user-1", "missing")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestAssessmentAdvance(t *testing.T) {
	ctx := context.Background()
	env := newAssessmentEnv(t)

	started, err := env.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	t.Run("single forward step", func(t *testing.T) {
		status, err := env.svc.Advance(ctx, "user-1", started.SessionID, constants.FlowStateMapIntro)
		require.NoError(t, err)
		assert.Equal(t, constants.FlowStateMapIntro, status.State)
	})

	t.Run("skipping a stage is a conflict", func(t *testing.T) {
		_, err := env.svc.Advance(ctx, "user-1", started.SessionID, constants.FlowStateDigitalTwin)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("advance survives a reload", func(t *testing.T) {
		status, err := env.svc.Status(ctx, "user-1", started.SessionID)
		require.NoError(t, err)
		assert.Equal(t, constants.FlowStateMapIntro, status.State)
	})
}

func TestAssessmentAnswerAndComplete(t *testing.T) {
	ctx := context.Background()
	env := newAssessmentEnv(t)
	sessionID := driveToAssessment(t, env.svc, "user-1")

	answer := &dto.AnswerRequest{QuestionID: "q1", Answer: "equities"}

	t.Run("answers advance the cursor", func(t *testing.T) {
		status, err := env.svc.Answer(ctx, "user-1", sessionID, answer)
		require.NoError(t, err)
		assert.Equal(t, 1, status.QuestionIndex)
	})

	t.Run("cursor is bounded by the question count", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, err := env.svc.Answer(ctx, "user-1", sessionID, answer)
			require.NoError(t, err)
		}
		_, err := env.svc.Answer(ctx, "user-1", sessionID, answer)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("complete enters the digital twin wait", func(t *testing.T) {
		status, err := env.svc.Complete(ctx, "user-1", sessionID)
		require.NoError(t, err)
		assert.Equal(t, constants.FlowStateDigitalTwin, status.State)
		assert.True(t, status.Done)
	})

	t.Run("answers after completion are refused", func(t *testing.T) {
		_, err := env.svc.Answer(ctx, "user-1", sessionID, answer)
		assert.True(t, errors.IsConflict(err))
	})
}

func TestAssessmentAnswerBackendRejection(t *testing.T) {
	ctx := context.Background()
	env := newAssessmentEnv(t)
	sessionID := driveToAssessment(t, env.svc, "user-1")
	answer := &dto.AnswerRequest{QuestionID: "q1", Answer: "equities"}

	env.failing.Store(true)
	_, err := env.svc.Answer(ctx, "user-1", sessionID, answer)
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamUnavailable(err))

	t.Run("cursor did not move", func(t *testing.T) {
		status, err := env.svc.Status(ctx, "user-1", sessionID)
		require.NoError(t, err)
		assert.Equal(t, 0, status.QuestionIndex)
	})

	t.Run("answer succeeds after recovery", func(t *testing.T) {
		env.failing.Store(false)
		status, err := env.svc.Answer(ctx, "user-1", sessionID, answer)
		require.NoError(t, err)
		assert.Equal(t, 1, status.QuestionIndex)
	})
}

func TestAssessmentCompleteBackendRejection(t *testing.T) {
	ctx := context.Background()
	env := newAssessmentEnv(t)
	sessionID := driveToAssessment(t, env.svc, "user-1")

	env.failing.Store(true)
	_, err := env.svc.Complete(ctx, "user-1", sessionID)
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamUnavailable(err))

	t.Run("flow stayed in the question loop", func(t *testing.T) {
		status, err := env.svc.Status(ctx, "user-1", sessionID)
		require.NoError(t, err)
		assert.Equal(t, constants.FlowStateAssessment, status.State)
	})

	t.Run("complete succeeds after recovery", func(t *testing.T) {
		env.failing.Store(false)
		status, err := env.svc.Complete(ctx, "user-1", sessionID)
		require.NoError(t, err)
		assert.Equal(t, constants.FlowStateDigitalTwin, status.State)
		assert.True(t, status.Done)
	})
}

// flakyFlowStore injects a Put failure over a real store.
type flakyFlowStore struct {
	domainService.FlowStore
	putErr error
}

func (f *flakyFlowStore) Put(ctx context.Context, flow *models.AssessmentFlow) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.FlowStore.Put(ctx, flow)
}

func TestAssessmentStartReleasesGuardOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()

	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_questions":3}`))
	}))
	t.Cleanup(srv.Close)

	backend, err := upstream.NewClient(&config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5}, testMetrics, log)
	require.NoError(t, err)

	flaky := &flakyFlowStore{FlowStore: redisstore.NewFlowStore(conn, log)}
	svc := NewAssessmentAppService(backend, flaky, events.NewNoopProducer(), log)

	flaky.putErr = errors.ErrInternal
	_, err = svc.Start(ctx, "user-1")
	require.Error(t, err)

	flaky.putErr = nil
	status, err := svc.Start(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, constants.FlowStateLanding, status.State)
}

func TestAssessmentStream(t *testing.T) {
	ctx := context.Background()
	env := newAssessmentEnv(t)
	sessionID := driveToAssessment(t, env.svc, "user-1")

	t.Run("owner gets the backend stream", func(t *testing.T) {
		resp, err := env.svc.Stream(ctx, "user-1", sessionID)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "event: progress")
	})

	t.Run("other users are refused", func(t *testing.T) {
		_, err := env.svc.Stream(ctx, "user-2", sessionID)
		require.Error(t, err)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeForbidden, appErr.Code)
	})

	t.Run("backend outage surfaces as unavailable", func(t *testing.T) {
		env.failing.Store(true)
		defer env.failing.Store(false)

		_, err := env.svc.Stream(ctx, "user-1", sessionID)
		assert.True(t, errors.IsUpstreamUnavailable(err))
	})
}
