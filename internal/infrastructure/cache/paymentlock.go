package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const paymentLockPrefix = keyPrefix + "payment:lock:"

// releaseScript deletes the lock only if it still carries our token, so a holder
// whose TTL ran out cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PaymentLock collapses concurrent deliveries of the same successful payment.
type PaymentLock struct {
	client *redis.Client
}

func NewPaymentLock(client *redis.Client) *PaymentLock {
	return &PaymentLock{client: client}
}

// Acquire claims chargeID for ttl. ok is false when another delivery holds it.
func (l *PaymentLock) Acquire(ctx context.Context, chargeID string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, paymentLockPrefix+chargeID, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire payment lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if token still owns it.
func (l *PaymentLock) Release(ctx context.Context, chargeID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{paymentLockPrefix + chargeID}, token).Err(); err != nil {
		return fmt.Errorf("failed to release payment lock: %w", err)
	}
	return nil
}
