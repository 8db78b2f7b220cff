// Package session owns the single browser process, the authentication
// cookies and scoped page acquisition.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/veranemoloko/course-archive/internal/browser"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/metrics"
)

// Manager owns at most one running browser process at a time. When the
// process dies unexpectedly it is replaced by a fresh one without cookies.
type Manager struct {
	driver browser.Driver
	opts   browser.LaunchOptions
	logger *slog.Logger

	mu        sync.Mutex
	launchCtx context.Context
	proc      browser.Process
	stopObs   chan struct{}
	cookies   []browser.Cookie
	gen       uint64
}

// NewManager creates a Manager that launches browsers with opts.
func NewManager(driver browser.Driver, opts browser.LaunchOptions, logger *slog.Logger) *Manager {
	return &Manager{
		driver: driver,
		opts:   opts,
		logger: logger,
	}
}

// Start launches the browser and registers the disconnect observer. ctx
// bounds the lifetime of this and any replacement process. Calling Start on
// a running manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	if m.proc != nil {
		return nil
	}

	proc, err := m.driver.Launch(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("%w: %w", errpkg.ErrLaunch, err)
	}

	m.launchCtx = ctx
	m.proc = proc
	m.gen++
	stop := make(chan struct{})
	m.stopObs = stop
	go m.observe(proc, stop, m.gen)

	m.logger.Info("browser started", "generation", m.gen, "headless", m.opts.Headless)
	return nil
}

// Stop deregisters the disconnect observer, closes the browser and forgets
// the cookies. It is safe to call more than once.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	if m.stopObs != nil {
		close(m.stopObs)
		m.stopObs = nil
	}
	m.cookies = nil

	if m.proc == nil {
		return nil
	}
	proc := m.proc
	m.proc = nil

	if err := proc.Close(); err != nil {
		m.logger.Warn("failed to close browser", "generation", m.gen, "error", err)
		return fmt.Errorf("close browser: %w", err)
	}
	m.logger.Debug("browser stopped", "generation", m.gen)
	return nil
}

func (m *Manager) observe(proc browser.Process, stop <-chan struct{}, gen uint64) {
	select {
	case <-stop:
		return
	case <-proc.Done():
	}
	m.recover(gen)
}

// recover replaces a process that went away on its own.
func (m *Manager) recover(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.proc == nil {
		return
	}

	m.logger.Warn("browser disconnected, restarting", "generation", gen)
	_ = m.stopLocked()
	if err := m.startLocked(m.launchCtx); err != nil {
		m.logger.Error("browser restart failed", "error", err)
		return
	}
	metrics.BrowserRestarts.Inc()
}

// SetCookies merges cookies into the set applied to every new page.
// A cookie replaces an earlier one with the same name, domain and path.
func (m *Manager) SetCookies(cookies []browser.Cookie) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range cookies {
		i := slices.IndexFunc(m.cookies, func(old browser.Cookie) bool {
			return old.Name == c.Name && old.Domain == c.Domain && old.Path == c.Path
		})
		if i >= 0 {
			m.cookies[i] = c
		} else {
			m.cookies = append(m.cookies, c)
		}
	}
}

// Cookies returns a copy of the current cookie set.
func (m *Manager) Cookies() []browser.Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.cookies)
}

// Generation increases every time a browser process is started.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Running reports whether a browser process is owned.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil
}

func (m *Manager) current() (browser.Process, []browser.Cookie, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc, slices.Clone(m.cookies), m.gen
}
