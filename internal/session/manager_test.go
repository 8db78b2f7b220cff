package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/browser/browsertest"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startedManager(t *testing.T, driver *browsertest.Driver) *Manager {
	t.Helper()
	m := NewManager(driver, browser.LaunchOptions{Headless: true}, newTestLogger())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func TestManager_StartLaunchError(t *testing.T) {
	driver := &browsertest.Driver{LaunchErr: errors.New("no chrome")}
	m := NewManager(driver, browser.LaunchOptions{}, newTestLogger())

	err := m.Start(context.Background())

	assert.ErrorIs(t, err, errpkg.ErrLaunch)
	assert.False(t, m.Running())
}

func TestManager_SingleSession(t *testing.T) {
	driver := &browsertest.Driver{}
	m := startedManager(t, driver)

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, 1, driver.Launches())
	assert.Equal(t, uint64(1), m.Generation())
	assert.True(t, driver.Options()[0].Headless)
}

func TestManager_StopIsIdempotent(t *testing.T) {
	driver := &browsertest.Driver{}
	m := startedManager(t, driver)
	m.SetCookies([]browser.Cookie{{Name: "sid", Value: "1"}})

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	assert.True(t, driver.Last().Closed())
	assert.False(t, m.Running())
	assert.Empty(t, m.Cookies())
}

func TestManager_StopDoesNotTriggerRecovery(t *testing.T) {
	driver := &browsertest.Driver{}
	m := startedManager(t, driver)

	require.NoError(t, m.Stop())
	driver.Last().Crash()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, driver.Launches())
	assert.False(t, m.Running())
}

func TestManager_RecoversFromDisconnect(t *testing.T) {
	driver := &browsertest.Driver{}
	m := startedManager(t, driver)
	m.SetCookies([]browser.Cookie{{Name: "sid", Value: "1"}})
	first := driver.Last()

	first.Crash()

	require.Eventually(t, func() bool { return driver.Launches() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return m.Generation() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, first.Closed())
	assert.True(t, m.Running())
	assert.Empty(t, m.Cookies(), "a recovered session starts unauthenticated")
}

func TestManager_SetCookiesMerges(t *testing.T) {
	m := NewManager(&browsertest.Driver{}, browser.LaunchOptions{}, newTestLogger())

	m.SetCookies([]browser.Cookie{
		{Name: "a", Value: "1", Domain: "x", Path: "/"},
		{Name: "b", Value: "1", Domain: "x", Path: "/"},
	})
	m.SetCookies([]browser.Cookie{{Name: "a", Value: "2", Domain: "x", Path: "/"}})

	cookies := m.Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "2", cookies[0].Value)
	assert.Equal(t, "b", cookies[1].Name)
}
