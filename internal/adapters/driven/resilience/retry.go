package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Policy configures retries and throttling for one remote service.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Limiter throttles every attempt, retries included. May be nil.
	Limiter *RateLimiter
}

// PolicyFromSettings builds a policy from the retry and rate limit settings.
// The limiter is shared by every service wrapped with the returned policy.
func PolicyFromSettings(retry domain.RetrySettings, limit domain.RateLimitSettings) Policy {
	p := Policy{
		MaxRetries:      retry.MaxRetries,
		InitialInterval: retry.InitialInterval,
		MaxInterval:     retry.MaxInterval,
	}
	if limit.Enabled() {
		p.Limiter = NewRateLimiter(limit.RequestsPerSecond, limit.Burst)
	}
	return p
}

// Enabled reports whether the policy changes anything.
func (p Policy) Enabled() bool {
	return p.MaxRetries > 0 || p.Limiter != nil
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	// Bounded by MaxRetries instead of elapsed time
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(p.MaxRetries, 0))), ctx)
}

// Do runs op under the policy. Only transient errors are retried; every
// other error is returned after the first attempt. When ctx ends while
// waiting, the returned error wraps both the context error and the last
// failure.
func Do[T any](ctx context.Context, p Policy, name string, op func(context.Context) (T, error)) (T, error) {
	var lastErr error
	attempt := func() (T, error) {
		var zero T
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return zero, backoff.Permanent(err)
			}
		}
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrProviderRateLimit) && p.Limiter != nil {
			p.Limiter.RecordRateLimit(0)
		}
		if !domain.IsTransient(err) || ctx.Err() != nil {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("%s failed, retrying in %s: %v", name, wait.Round(time.Millisecond), err)
	}

	res, err := backoff.RetryNotifyWithData(attempt, p.backOff(ctx), notify)
	if err != nil && lastErr != nil && err != lastErr && ctx.Err() != nil {
		return res, fmt.Errorf("%w: %w", err, lastErr)
	}
	return res, err
}
