package telegram

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// RetryPolicy bounds every Bot API call made on behalf of the lifecycle engine.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NewRetryPolicy fills unset fields with three attempts starting at one second.
func NewRetryPolicy(cfg sharedConfig.GatewayConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = 8 * p.InitialInterval
	}
	return p
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	return b
}

// withRetry runs fn until it succeeds, fails permanently, or attempts run out.
// The returned error is always the last error fn produced, so callers can classify it.
func withRetry[T any](ctx context.Context, p RetryPolicy, log logger.Interface, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn(ctx)
		lastErr = err
		if err == nil {
			return v, nil
		}
		if ClassifyError(err) == OutcomePermanent {
			return v, backoff.Permanent(err)
		}
		if wait := RetryAfterOf(err); wait > 0 {
			return v, backoff.RetryAfter(int(wait / time.Second))
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warnw("telegram call failed, retrying",
				"op", op,
				"error", err,
				"next_attempt_in", next,
			)
		}),
	)
	if err != nil && lastErr != nil {
		return v, lastErr
	}
	return v, err
}
