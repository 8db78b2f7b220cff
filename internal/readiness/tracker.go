// Package readiness decides when a freshly navigated page is stable enough
// to capture and bounds how long a capture may take.
package readiness

import (
	"context"
	"sync"
	"time"

	"github.com/veranemoloko/course-archive/internal/browser"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
)

const (
	DefaultQuietPeriod   = time.Second
	DefaultRenderTimeout = 30 * time.Second
	DefaultSaveTimeout   = 30 * time.Second
)

// Tracker counts in-flight network requests of one page.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	changed  chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		inflight: make(map[string]struct{}),
		changed:  make(chan struct{}),
	}
}

// Observe records a network event. Redirects reuse the request ID, so a
// repeated start is counted once.
func (t *Tracker) Observe(ev browser.NetworkEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case browser.RequestStarted:
		if _, ok := t.inflight[ev.RequestID]; ok {
			return
		}
		t.inflight[ev.RequestID] = struct{}{}
	case browser.RequestFinished:
		if _, ok := t.inflight[ev.RequestID]; !ok {
			return
		}
		delete(t.inflight, ev.RequestID)
	default:
		return
	}

	close(t.changed)
	t.changed = make(chan struct{})
}

// InFlight returns the number of requests currently pending.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *Tracker) snapshot() (int, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight), t.changed
}

// WaitIdle blocks until no request has been in flight for quiet. It fails
// with ErrRenderTimeout if that does not happen within timeout.
func (t *Tracker) WaitIdle(ctx context.Context, quiet, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		n, changed := t.snapshot()

		var quietC <-chan time.Time
		var quietTimer *time.Timer
		if n == 0 {
			quietTimer = time.NewTimer(quiet)
			quietC = quietTimer.C
		}

		select {
		case <-quietC:
			return nil
		case <-changed:
		case <-deadline.C:
			stopTimer(quietTimer)
			return errpkg.ErrRenderTimeout
		case <-ctx.Done():
			stopTimer(quietTimer)
			return ctx.Err()
		}
		stopTimer(quietTimer)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
