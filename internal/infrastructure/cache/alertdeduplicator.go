package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const alertKeyPrefix = keyPrefix + "admin_alert:"

// AlertType represents different alert types for deduplication
type AlertType string

const (
	AlertTypePaymentError AlertType = "payment_error"
)

// AlertDeduplicator keeps operators from being paged twice for the same incident,
// across every instance sharing the Redis.
type AlertDeduplicator struct {
	client *redis.Client
}

func NewAlertDeduplicator(client *redis.Client) *AlertDeduplicator {
	return &AlertDeduplicator{client: client}
}

// Format: channelgate:admin_alert:{type}:{resource}
func (d *AlertDeduplicator) buildKey(alertType AlertType, resource string) string {
	return fmt.Sprintf("%s%s:%s", alertKeyPrefix, alertType, resource)
}

// TryAcquire atomically claims the alert for resource. It returns false while a
// previous alert for the same resource is still in cooldown.
func (d *AlertDeduplicator) TryAcquire(ctx context.Context, alertType AlertType, resource string, ttl time.Duration) (bool, error) {
	acquired, err := d.client.SetNX(ctx, d.buildKey(alertType, resource), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire alert lock: %w", err)
	}
	return acquired, nil
}

// Clear ends the cooldown early, e.g. after the incident was resolved.
func (d *AlertDeduplicator) Clear(ctx context.Context, alertType AlertType, resource string) error {
	if err := d.client.Del(ctx, d.buildKey(alertType, resource)).Err(); err != nil {
		return fmt.Errorf("failed to clear alert: %w", err)
	}
	return nil
}
