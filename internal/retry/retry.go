// Package retry runs an operation again after failures with an
// exponentially growing wait between attempts.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Retryable decides whether an error is worth another attempt. A nil
	// func retries every error.
	Retryable func(error) bool
}

// Backoff returns the wait before the given retry, counted from 1.
func (p Policy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	wait := p.InitialInterval
	for i := 1; i < retry; i++ {
		wait *= 2
		if p.MaxInterval > 0 && wait >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	if p.MaxInterval > 0 && wait > p.MaxInterval {
		return p.MaxInterval
	}
	return wait
}

// OnRetry is called after a failed attempt, before waiting.
type OnRetry func(attempt int, err error, wait time.Duration)

// Do calls op until it succeeds, returns a non retryable error, the
// retries are used up or ctx is done. It returns the number of attempts
// made and the last error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error, onRetry OnRetry) (int, error) {
	attempt := 0
	for {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt, err
		}
		if attempt > p.MaxRetries {
			return attempt, err
		}

		wait := p.Backoff(attempt)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}
	}
}
