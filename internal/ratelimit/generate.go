package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/opsalert/internal/config"
	"go.uber.org/zap"
)

const keyGenerate = "opsalert:ratelimit:generate:%s"

// Bucket is satisfied by *TokenBucket.
type Bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

// GenerateLimiter throttles on-demand detection passes per caller. A nil
// limiter allows everything.
type GenerateLimiter struct {
	bucket Bucket
	rate   float64
	burst  int
}

// NewGenerateLimiter returns nil when GENERATE_RATE_PER_MINUTE is unset or
// redis is not configured.
func NewGenerateLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *GenerateLimiter {
	if cfg.GenerateRatePerMinute <= 0 {
		return nil
	}
	if client == nil {
		log.Warn("generate rate limit configured without redis, limit disabled")
		return nil
	}
	return NewGenerateLimiterWith(NewTokenBucket(client), cfg.GenerateRatePerMinute, cfg.GenerateBurst)
}

func NewGenerateLimiterWith(b Bucket, perMinute float64, burst int) *GenerateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &GenerateLimiter{
		bucket: b,
		rate:   perMinute / 60,
		burst:  burst,
	}
}

func (l *GenerateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *GenerateLimiter) Allow(ctx context.Context, caller string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		caller = "anonymous"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGenerate, caller), l.rate, l.burst)
}
