package logbook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryPolicy is an exponential backoff schedule with no attempt limit.
type RetryPolicy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRetryPolicy waits 1s, 2s, 4s, ... up to one minute between
// attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// Schedule returns a fresh, jitter-free interval generator for one query.
func (p RetryPolicy) Schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrying wraps a CountSource and retries every failed query until it
// succeeds. The context is checked only between attempts; an attempt in
// flight always runs to completion.
type Retrying struct {
	source CountSource
	policy RetryPolicy
	logger *slog.Logger

	// Sleep defaults to a timer wait.
	Sleep SleepFunc
	// OnRetry, if set, is called before each wait.
	OnRetry func(scope Scope, attempt int, wait time.Duration, err error)
}

// NewRetrying wraps source with policy.
func NewRetrying(source CountSource, policy RetryPolicy, logger *slog.Logger) *Retrying {
	return &Retrying{
		source: source,
		policy: policy,
		logger: logger,
		Sleep:  sleep,
	}
}

// CountContacts implements CountSource. It only returns an error when ctx
// is cancelled.
func (r *Retrying) CountContacts(ctx context.Context, scope Scope) (int, error) {
	schedule := r.policy.Schedule()
	attemptCtx := context.WithoutCancel(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("count contacts (%s): %w", scope, err)
		}

		n, err := r.source.CountContacts(attemptCtx, scope)
		if err == nil {
			return n, nil
		}

		wait := schedule.NextBackOff()
		r.logger.Warn("logbook query failed, retrying",
			"scope", scope.String(),
			"attempt", attempt,
			"wait", wait,
			"error", err)
		if r.OnRetry != nil {
			r.OnRetry(scope, attempt, wait, err)
		}

		if err := r.Sleep(ctx, wait); err != nil {
			return 0, fmt.Errorf("count contacts (%s): %w", scope, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
