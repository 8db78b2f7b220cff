package readiness

import (
	"context"
	"errors"
	"time"

	errpkg "github.com/veranemoloko/course-archive/internal/errors"
)

const pollInterval = 100 * time.Millisecond

// Probe reports whether asynchronous page content has finished rendering.
type Probe func(ctx context.Context) (bool, error)

// WaitContentReady polls probe until it reports true. Probe errors are
// treated as not ready yet. It fails with ErrRenderTimeout after timeout.
func WaitContentReady(ctx context.Context, timeout time.Duration, probe Probe) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ready, err := probe(ctx)
		if err == nil && ready {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return deadlineAs(ctx, errpkg.ErrRenderTimeout)
		}
	}
}

// SaveWithin runs fn and fails with ErrSaveTimeout if it does not return
// within timeout. fn receives a context cancelled at the deadline.
func SaveWithin(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errpkg.ErrSaveTimeout
		}
		return err
	case <-ctx.Done():
		return deadlineAs(ctx, errpkg.ErrSaveTimeout)
	}
}

func deadlineAs(ctx context.Context, timeoutErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutErr
	}
	return ctx.Err()
}
