package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const paymentLockKey = "webhook:reconcile:lock:%s"

// releaseScript deletes the lock only when the caller still holds it,
// so a delivery whose lock expired cannot release a successor's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// paymentLock holds a short-lived redis lock per provider payment id so
// concurrent deliveries for the same payment reconcile one at a time.
type paymentLock struct {
	client  *redis.Client
	release *redis.Script
	ttl     time.Duration
}

func newPaymentLock(client *redis.Client, ttl time.Duration) *paymentLock {
	return &paymentLock{
		client:  client,
		release: redis.NewScript(releaseScript),
		ttl:     ttl,
	}
}

// Acquire attempts to take the lock for a payment. It returns the release
// token and whether the lock was taken; a held lock is not an error.
func (l *paymentLock) Acquire(ctx context.Context, providerPaymentID string) (string, bool, error) {
	id := strings.TrimSpace(providerPaymentID)
	if id == "" {
		return "", false, errors.New("provider payment id is required")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, fmt.Sprintf(paymentLockKey, id), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if token still owns it. Releasing an expired or
// stolen lock is a no-op.
func (l *paymentLock) Release(ctx context.Context, providerPaymentID, token string) error {
	id := strings.TrimSpace(providerPaymentID)
	if id == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{fmt.Sprintf(paymentLockKey, id)}, token).Err()
}
