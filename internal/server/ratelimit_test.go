package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/opsalert/internal/config"
	"github.com/smallbiznis/opsalert/internal/detection"
	"github.com/smallbiznis/opsalert/internal/observability"
	"github.com/smallbiznis/opsalert/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBucket struct {
	res *ratelimit.Result
	err error
}

func (b stubBucket) Allow(context.Context, string, float64, int) (*ratelimit.Result, error) {
	return b.res, b.err
}

func newLimitedServer(t *testing.T, det *fakeDetection, b ratelimit.Bucket) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(ServerParams{
		Gin:       NewEngine(observability.Config{}, nil),
		Cfg:       config.Config{Environment: "test"},
		Log:       zap.NewNop(),
		AlertSvc:  &fakeAlertService{},
		Detection: det,
		Limiter:   ratelimit.NewGenerateLimiterWith(b, 6, 2),
	})
}

func TestGenerateAlertsRateLimited(t *testing.T) {
	det := &fakeDetection{}
	s := newLimitedServer(t, det, stubBucket{res: &ratelimit.Result{Allowed: false, Limit: 2, RetryAfter: 1500 * time.Millisecond}})

	rec := doRequest(s, http.MethodPost, "/api/alerts/generate", nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.JSONEq(t, `{"error":{"type":"rate_limited","message":"too many requests"}}`, rec.Body.String())
	assert.Zero(t, det.runs)
}

func TestGenerateAlertsWithinLimit(t *testing.T) {
	det := &fakeDetection{result: detection.Result{Persisted: 1}}
	s := newLimitedServer(t, det, stubBucket{res: &ratelimit.Result{Allowed: true, Limit: 2, Remaining: 1}})

	rec := doRequest(s, http.MethodPost, "/api/alerts/generate", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, det.runs)
}

func TestGenerateAlertsLimiterErrorLetsRequestThrough(t *testing.T) {
	det := &fakeDetection{}
	s := newLimitedServer(t, det, stubBucket{err: errors.New("redis down")})

	rec := doRequest(s, http.MethodPost, "/api/alerts/generate", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, det.runs)
}
