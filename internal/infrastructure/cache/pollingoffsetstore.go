package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const pollingOffsetPrefix = keyPrefix + "telegram:polling:offset:"

// PollingOffsetStore keeps the last committed update_id per bot. Update ids are only
// ordered within one bot, so a token swap must not inherit the old watermark.
type PollingOffsetStore struct {
	client *redis.Client
	key    string
}

func NewPollingOffsetStore(client *redis.Client, botID string) *PollingOffsetStore {
	return &PollingOffsetStore{client: client, key: pollingOffsetPrefix + botID}
}

// GetOffset returns the committed offset, 0 when nothing was stored yet.
func (s *PollingOffsetStore) GetOffset(ctx context.Context) (int64, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read polling offset: %w", err)
	}

	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt polling offset %q: %w", raw, err)
	}
	return offset, nil
}

// SaveOffset commits offset. A value lower than the stored one is ignored.
func (s *PollingOffsetStore) SaveOffset(ctx context.Context, offset int64) error {
	current, err := s.GetOffset(ctx)
	if err == nil && current >= offset {
		return nil
	}
	if err := s.client.Set(ctx, s.key, strconv.FormatInt(offset, 10), 0).Err(); err != nil {
		return fmt.Errorf("failed to save polling offset: %w", err)
	}
	return nil
}
