package pipeline

import (
	"context"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/browser/browsertest"
	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/session"
)

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// sessionDownloader drives a real session manager over a fake browser and
// crashes the browser during the first attempt of task "b".
type sessionDownloader struct {
	m      *session.Manager
	driver *browsertest.Driver

	logins  atomic.Int32
	crashed atomic.Bool

	mu      sync.Mutex
	cookies map[string][]int
	errs    []error
}

func (d *sessionDownloader) Login(ctx context.Context) error {
	d.logins.Add(1)
	d.m.SetCookies([]browser.Cookie{{Name: "sid", Value: "1", Domain: "example.org", Path: "/"}})
	return nil
}

func (d *sessionDownloader) DownloadTasks(ctx context.Context) iter.Seq2[domain.DownloadTask, error] {
	return seq("a", "b", "c")
}

func (d *sessionDownloader) PerformDownload(ctx context.Context, task domain.DownloadTask) (domain.DownloadResult, error) {
	result, err := session.WithPage(ctx, d.m, task.URL, func(ctx context.Context, h *session.Handle) (domain.DownloadResult, error) {
		page := h.Page.(*browsertest.Page)
		d.mu.Lock()
		d.cookies[task.ID] = append(d.cookies[task.ID], len(page.AppliedCookies()))
		d.mu.Unlock()

		if task.ID == "b" && d.crashed.CompareAndSwap(false, true) {
			gen := d.m.Generation()
			d.driver.Last().Crash()
			waitFor(func() bool { return d.m.Generation() > gen }, time.Second)
			if _, err := page.HTML(ctx); err != nil {
				return domain.DownloadResult{}, err
			}
		}
		return domain.DownloadResult{Task: task, BaseName: task.ID}, nil
	})
	if err != nil {
		d.mu.Lock()
		d.errs = append(d.errs, err)
		d.mu.Unlock()
	}
	return result, err
}

func (d *sessionDownloader) ReportResults([]domain.DownloadResult) error { return nil }

func runWithCrash(t *testing.T, relogin bool) (*sessionDownloader, *Outcome) {
	t.Helper()
	driver := &browsertest.Driver{}
	m := session.NewManager(driver, browser.LaunchOptions{Headless: true}, newTestLogger())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop() })

	d := &sessionDownloader{m: m, driver: driver, cookies: make(map[string][]int)}
	cfg := testConfig(1, 3)
	cfg.Relogin = relogin
	p := New(d, m, cfg, nil, io.Discard, newTestLogger())

	outcome, err := p.Run(context.Background())
	require.NoError(t, err)
	return d, outcome
}

func TestRun_DisconnectDuringTaskIsRetried(t *testing.T) {
	d, outcome := runWithCrash(t, true)

	assert.Equal(t, []string{"a", "b", "c"}, ids(outcome.Results))
	require.Len(t, d.errs, 1)
	assert.ErrorIs(t, d.errs[0], errpkg.ErrDisconnected)
	assert.Equal(t, 2, d.driver.Launches())

	assert.Equal(t, int32(2), d.logins.Load(), "login is replayed once for the new browser")
	assert.Equal(t, []int{1, 1}, d.cookies["b"])
	assert.Equal(t, []int{1}, d.cookies["c"])
}

func TestRun_DisconnectWithoutRelogin(t *testing.T) {
	d, outcome := runWithCrash(t, false)

	assert.Equal(t, []string{"a", "b", "c"}, ids(outcome.Results))
	assert.Equal(t, int32(1), d.logins.Load())
	assert.Equal(t, []int{1, 0}, d.cookies["b"], "a recovered browser has no cookies until login runs again")
	assert.Equal(t, []int{0}, d.cookies["c"])
}
