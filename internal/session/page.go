package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/veranemoloko/course-archive/internal/browser"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/readiness"
)

// Handle is a page lent to a caller for the duration of WithPage.
type Handle struct {
	ID      string
	Page    browser.Page
	Tracker *readiness.Tracker

	gen uint64
}

// Generation is the browser generation the page was opened in.
func (h *Handle) Generation() uint64 {
	return h.gen
}

// WithPage opens a page with the current cookies, navigates to url unless it
// is empty and runs body. The page is closed on every return path. Errors
// from a browser that was replaced meanwhile wrap ErrDisconnected.
func WithPage[T any](ctx context.Context, m *Manager, url string, body func(ctx context.Context, h *Handle) (T, error)) (T, error) {
	var zero T

	proc, cookies, gen := m.current()
	if proc == nil {
		return zero, errpkg.ErrSessionClosed
	}

	page, err := proc.NewPage(ctx)
	if err != nil {
		return zero, m.classify(gen, fmt.Errorf("open page: %w", err))
	}

	h := &Handle{
		ID:      uuid.NewString(),
		Page:    page,
		Tracker: readiness.NewTracker(),
		gen:     gen,
	}
	defer m.release(h)

	page.ObserveNetwork(func(ev browser.NetworkEvent) {
		h.Tracker.Observe(ev)
	})
	m.logger.Debug("page opened", "page_id", h.ID, "url", url)

	if err := page.SetCookies(ctx, cookies); err != nil {
		return zero, m.classify(gen, fmt.Errorf("apply cookies: %w", err))
	}
	if url != "" {
		if err := page.Navigate(ctx, url); err != nil {
			return zero, m.classify(gen, err)
		}
	}

	out, err := body(ctx, h)
	if err != nil {
		return zero, m.classify(gen, err)
	}
	return out, nil
}

func (m *Manager) release(h *Handle) {
	if err := h.Page.Close(); err != nil {
		m.logger.Warn("failed to close page", "page_id", h.ID, "error", err)
		return
	}
	m.logger.Debug("page closed", "page_id", h.ID)
}

// classify marks err as caused by a disconnect when the process it ran
// against is no longer the current one.
func (m *Manager) classify(gen uint64, err error) error {
	proc, _, cur := m.current()
	if cur != gen || proc == nil {
		return fmt.Errorf("%w: %w", errpkg.ErrDisconnected, err)
	}
	select {
	case <-proc.Done():
		return fmt.Errorf("%w: %w", errpkg.ErrDisconnected, err)
	default:
		return err
	}
}
