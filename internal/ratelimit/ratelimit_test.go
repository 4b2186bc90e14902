package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/opsalert/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBucket struct {
	keys  []string
	rate  float64
	burst int
	res   *Result
}

func (f *fakeBucket) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	f.keys = append(f.keys, key)
	f.rate = rate
	f.burst = burst
	return f.res, nil
}

func TestNilGenerateLimiterAllows(t *testing.T) {
	var l *GenerateLimiter

	res, err := l.Allow(context.Background(), "10.0.0.1")

	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, l.Enabled())
}

func TestNewGenerateLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewGenerateLimiter(config.Config{}, nil, zap.NewNop()))
	assert.Nil(t, NewGenerateLimiter(config.Config{GenerateRatePerMinute: 6}, nil, zap.NewNop()))
}

func TestGenerateLimiterKeysPerCaller(t *testing.T) {
	fb := &fakeBucket{res: &Result{Allowed: true}}
	l := NewGenerateLimiterWith(fb, 6, 0)

	_, err := l.Allow(context.Background(), " 10.0.0.1 ")
	require.NoError(t, err)
	_, err = l.Allow(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"opsalert:ratelimit:generate:10.0.0.1",
		"opsalert:ratelimit:generate:anonymous",
	}, fb.keys)
	assert.InDelta(t, 0.1, fb.rate, 1e-9)
	assert.Equal(t, 1, fb.burst)
}

func TestTokenBucketRequiresClient(t *testing.T) {
	var tb *TokenBucket

	_, err := tb.Allow(context.Background(), "k", 1, 1)

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 10*time.Second, retryAfter(0, 0.1))
	assert.Equal(t, 5*time.Second, retryAfter(0.5, 0.1))
	assert.Equal(t, time.Duration(0), retryAfter(1, 0.1))
}

func TestToFloat(t *testing.T) {
	assert.InDelta(t, 2.5, toFloat("2.5"), 1e-9)
	assert.InDelta(t, 3.0, toFloat(int64(3)), 1e-9)
	assert.Zero(t, toFloat("bad"))
}
