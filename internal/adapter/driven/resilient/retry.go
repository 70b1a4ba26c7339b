// Package resilient decorates the driven ports with bounded retries of
// transport failures. Only model.NetworkError is retried; every other error,
// including remote rejections and cancellation, is returned on first sight.
package resilient

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// Policy bounds the retry loop.
type Policy struct {
	Attempts        int // total attempts including the first; < 1 means 1
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used when a zero Policy is supplied.
var DefaultPolicy = Policy{
	Attempts:        3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

func (p Policy) withDefaults() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultPolicy.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultPolicy.MaxInterval
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)
}

// do runs op under the policy. Non-network errors are marked permanent so the
// loop stops immediately; backoff unwraps them before returning.
func do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn()
		if err != nil && !model.IsNetwork(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("retrying after network error",
			"op", op,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}
	return backoff.RetryNotifyWithData(operation, p.backOff(ctx), notify)
}

// doErr is do for operations without a result.
func doErr(ctx context.Context, p Policy, logger *slog.Logger, op string, fn func() error) error {
	_, err := do(ctx, p, logger, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
