package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/metrics"
)

// RetryPolicy controls retries of transient provider errors.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy: 2 retries, 200ms doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Notify is called before each retry with the 1-based attempt that failed.
type Notify func(attempt int, err error, next time.Duration)

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.MaxElapsedTime = 0 // общий дедлайн задаёт ctx запроса
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(p.MaxRetries, 0))), ctx)
}

// Retry runs fn until it succeeds, fails permanently, runs out of retries or ctx ends.
// Only errors for which domain.IsTransient is true are retried.
// Returns the number of attempts made.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error), notify Notify) (T, int, error) {
	attempts := 0
	var last error

	res, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempts++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		last = err
		if !domain.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, p.backOff(ctx), func(err error, next time.Duration) {
		metrics.ProviderRetriesTotal.WithLabelValues(op).Inc()
		if notify != nil {
			notify(attempts, err, next)
		}
	})

	if err != nil && last != nil && !errors.Is(err, last) {
		// дедлайн запроса истёк между попытками: сохраняем причину последней ошибки
		err = fmt.Errorf("%w (last attempt: %w)", err, last)
	}
	return res, attempts, err
}
