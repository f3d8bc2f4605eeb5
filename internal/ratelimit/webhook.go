package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/numeratel/numera/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyWebhookTenant = "webhook:ingest:tenant:%s"

// WebhookLimiter guards webhook ingestion: a per-tenant token bucket against
// delivery floods, and a per-payment lock serializing concurrent deliveries
// for the same provider payment id. It is disabled (nil) when no redis
// address is configured; the store uniqueness constraint still holds alone.
type WebhookLimiter struct {
	bucket *TokenBucket
	lock   *paymentLock

	rate  float64
	burst int
}

func NewWebhookLimiter(cfg config.Config) *WebhookLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &WebhookLimiter{
		bucket: NewTokenBucket(client),
		lock:   newPaymentLock(client, cfg.LockTTL),
		rate:   cfg.WebhookRate,
		burst:  cfg.WebhookBurst,
	}
}

func (l *WebhookLimiter) Enabled() bool {
	return l != nil
}

func (l *WebhookLimiter) AllowTenant(ctx context.Context, tenantID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWebhookTenant, strings.TrimSpace(tenantID)), l.rate, l.burst)
}

func (l *WebhookLimiter) TryLockPayment(ctx context.Context, providerPaymentID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.Acquire(ctx, providerPaymentID)
}

func (l *WebhookLimiter) ReleasePayment(ctx context.Context, providerPaymentID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.Release(ctx, providerPaymentID, token)
}
