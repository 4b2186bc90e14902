package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/opsalert/internal/config"
	"go.uber.org/zap"
)

const keyAlertFingerprint = "opsalert:fingerprint:%s"

// Guard admits a fingerprint at most once per TTL. Release forgets an
// admission whose alert never made it to the store.
type Guard interface {
	Admit(ctx context.Context, fingerprint string) (bool, error)
	Release(ctx context.Context, fingerprints ...string) error
}

type guardClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisGuard struct {
	client guardClient
	ttl    time.Duration
}

func (g *redisGuard) Admit(ctx context.Context, fingerprint string) (bool, error) {
	return g.client.SetNX(ctx, fingerprintKey(fingerprint), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

func (g *redisGuard) Release(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fingerprints))
	for _, fp := range fingerprints {
		keys = append(keys, fingerprintKey(fp))
	}
	return g.client.Del(ctx, keys...).Err()
}

type noopGuard struct{}

func (noopGuard) Admit(context.Context, string) (bool, error) { return true, nil }

func (noopGuard) Release(context.Context, ...string) error { return nil }

// NoopGuard admits everything.
func NoopGuard() Guard { return noopGuard{} }

// NewGuard returns a redis-backed guard only when dedup is enabled and redis
// is configured; otherwise every fingerprint is admitted.
func NewGuard(cfg config.Config, client *redis.Client, log *zap.Logger) Guard {
	if !cfg.DedupEnabled {
		return noopGuard{}
	}
	if client == nil {
		log.Warn("alert dedup enabled without redis, duplicates will be persisted")
		return noopGuard{}
	}
	return newRedisGuard(client, cfg.DedupTTL)
}

func newRedisGuard(client guardClient, ttl time.Duration) *redisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisGuard{client: client, ttl: ttl}
}

func fingerprintKey(fingerprint string) string {
	return fmt.Sprintf(keyAlertFingerprint, fingerprint)
}
