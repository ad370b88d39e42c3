// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the resilience wrapper shared by every outbound
// call: a fixed pre-call delay, 404 treated as an empty result, and jittered
// exponential backoff on HTTP 429.
package httputil

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/queue"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Default policy values.
const (
	DefaultPreDelay   = 500 * time.Millisecond
	DefaultBaseDelay  = time.Second
	DefaultMaxRetries = 3
)

// Policy configures Call.
type Policy struct {
	// PreDelay is slept before every attempt.
	PreDelay time.Duration

	// BaseDelay is the backoff base for 429 retries.
	BaseDelay time.Duration

	// MaxRetries is the number of retries after the first 429. Negative
	// disables retries.
	MaxRetries int

	// Rand returns values in [0, 1) for backoff jitter; nil uses math/rand/v2.
	Rand func() float64

	Logger *slog.Logger
}

// DefaultPolicy returns the 500ms / 1s / 3 retries policy.
func DefaultPolicy() Policy {
	return Policy{PreDelay: DefaultPreDelay, BaseDelay: DefaultBaseDelay, MaxRetries: DefaultMaxRetries}
}

// PolicyFromConfig fills zero fields of cfg with the defaults.
func PolicyFromConfig(cfg types.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.PreDelay > 0 {
		p.PreDelay = cfg.PreDelay
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxRetries != 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	return p
}

// BackoffDelay returns base * 2^retry * (0.5 + r*0.5) for r in [0, 1). The
// result lies in [base*2^retry/2, base*2^retry).
func BackoffDelay(base time.Duration, retry int, r float64) time.Duration {
	scale := float64(int64(1) << uint(retry))
	return time.Duration(float64(base) * scale * (0.5 + r*0.5))
}

// nextDelay picks the pause before retry. A server Retry-After longer than
// the jittered backoff is honored up to base*2^retry, the backoff ceiling.
func nextDelay(base time.Duration, retry int, r float64, retryAfter time.Duration) time.Duration {
	delay := BackoffDelay(base, retry, r)
	if retryAfter <= delay {
		return delay
	}
	return min(retryAfter, base*time.Duration(int64(1)<<uint(retry)))
}

// Call runs fn under p. A 404 yields the zero value and a nil error. A 429 is
// retried with backoff until MaxRetries is reached, after which Call returns
// an error wrapping both ErrRateLimitExceeded and the last status. Other
// errors are returned unchanged. Every backoff pause stays below or at
// base*2^retry, including one stretched by Retry-After.
func Call[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	rnd := p.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for retry := 0; ; retry++ {
		if err := sleep(ctx, p.PreDelay); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		switch {
		case err == nil:
			return v, nil
		case IsNotFound(err):
			return zero, nil
		case StatusCode(err) != http.StatusTooManyRequests:
			return zero, err
		}

		if retry >= p.MaxRetries {
			return zero, fmt.Errorf("%w after %d retries: %w", ErrRateLimitExceeded, retry, err)
		}

		delay := nextDelay(p.BaseDelay, retry, rnd(), retryAfter(err))
		logger.Debug("rate limited, backing off",
			logging.Attempt(retry+1),
			logging.Duration("delay", delay))

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// Through admits a Call into q so the attempt, its retries and its backoff
// all respect the queue's spacing. A nil q runs Call directly.
func Through[T any](ctx context.Context, q *queue.Queue, class queue.Class, source string, p Policy, fn func(context.Context) (T, error)) (T, error) {
	if q == nil {
		return Call(ctx, p, fn)
	}
	return queue.Do(ctx, q, class, source, func(ctx context.Context) (T, error) {
		return Call(ctx, p, fn)
	})
}

func retryAfter(err error) time.Duration {
	if se, ok := asStatus(err); ok {
		return se.RetryAfter
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
