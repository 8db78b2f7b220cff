// Package coursera archives graded quiz and exam feedback pages from
// www.coursera.org.
package coursera

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"regexp"
	"slices"
	"time"

	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/platform"
	"github.com/veranemoloko/course-archive/internal/session"
)

var (
	// CourseURLPattern matches the welcome page of a Coursera course.
	CourseURLPattern = regexp.MustCompile(`^https://www.coursera.org/learn/.*/home/welcome$`)

	examURLPattern = regexp.MustCompile(`^https://www.coursera.org/learn/.*/exam/.*/.*$`)
	quizURLPattern = regexp.MustCompile(`^https://www.coursera.org/learn/.*/quiz/.*/.*$`)
)

const (
	Name = "Coursera"
	// DefaultConcurrency is one: the site blocks parallel sessions.
	DefaultConcurrency = 1

	loginURL      = "https://www.coursera.org/?authMode=login"
	loginEndpoint = "https://www.coursera.org/api/login/v3"
	authCookie    = "CAUTH"

	// captchaTimeout bounds how long a person may take to solve the captcha.
	captchaTimeout = 10 * time.Minute
)

// Platform registers the Coursera adapter.
func Platform() platform.Platform {
	return platform.Platform{
		Name:        Name,
		Pattern:     CourseURLPattern,
		Concurrency: DefaultConcurrency,
		New:         New,
	}
}

type Downloader struct {
	deps platform.Deps
}

func New(deps platform.Deps) platform.Downloader {
	return &Downloader{deps: deps}
}

// Login signs in through a separate visible window so that a captcha can be
// solved by hand. Only the auth cookie is carried into the session.
func (d *Downloader) Login(ctx context.Context) error {
	fmt.Fprintln(d.deps.Out, "Attempting to login on Coursera.")
	fmt.Fprintln(d.deps.Out, "You might be prompted for captcha.")

	proc, err := d.deps.Driver.Launch(ctx, browser.LaunchOptions{
		Headless: false,
		Bin:      d.deps.Options.BrowserBin,
		Flags: map[string]string{
			"app":         loginURL,
			"window-size": "815,640",
		},
	})
	if err != nil {
		return fmt.Errorf("%w: open login window: %w", errpkg.ErrAuth, err)
	}
	defer func() {
		if err := proc.Close(); err != nil {
			d.deps.Logger.Warn("failed to close login window", "error", err)
		}
	}()

	page, err := proc.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: open login page: %w", errpkg.ErrAuth, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			d.deps.Logger.Warn("failed to close login page", "error", err)
		}
	}()

	cookies, err := d.submit(ctx, page)
	if err != nil {
		return err
	}
	d.deps.Session.SetCookies(cookies)
	return nil
}

func (d *Downloader) submit(ctx context.Context, page browser.Page) ([]browser.Cookie, error) {
	timeout := d.deps.Options.RenderTimeout

	if err := page.Navigate(ctx, loginURL); err != nil {
		return nil, err
	}
	if err := platform.WaitFor(ctx, page, "input[type=email]", timeout); err != nil {
		return nil, err
	}
	if err := page.Input(ctx, "input[type=email]", d.deps.Credentials.User); err != nil {
		return nil, err
	}
	if err := page.Input(ctx, "input[type=password]", d.deps.Credentials.Password); err != nil {
		return nil, err
	}
	if err := platform.WaitFor(ctx, page, "#g-recaptcha-response", timeout); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, captchaTimeout)
	defer cancel()
	status, err := page.WaitResponse(waitCtx,
		func(u string) bool { return u == loginEndpoint },
		func() error { return page.Click(ctx, `button[data-js="submit"]`) },
	)
	if err != nil {
		return nil, fmt.Errorf("%w: no login response: %w", errpkg.ErrAuth, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: login response status code: %d", errpkg.ErrAuth, status)
	}

	all, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	auth := browser.FilterCookies(all, authCookie)
	if len(auth) == 0 {
		return nil, fmt.Errorf("%w: no %s cookie after login", errpkg.ErrAuth, authCookie)
	}
	return auth[:1], nil
}

// DownloadTasks visits every week and every graded item, yielding the
// feedback page of each attempted quiz or exam.
func (d *Downloader) DownloadTasks(ctx context.Context) iter.Seq2[domain.DownloadTask, error] {
	return platform.Discover(ctx, d.deps.Session, d.deps.CourseURL, d.walk)
}

func (d *Downloader) walk(ctx context.Context, h *session.Handle, emit platform.Emit) error {
	weeks, err := d.links(ctx, h, "a.rc-WeekNavigationItem", d.deps.CourseURL)
	if err != nil {
		return err
	}

	for _, week := range weeks {
		if err := h.Page.Navigate(ctx, week); err != nil {
			return err
		}
		lessons, err := d.links(ctx, h, ".rc-ModuleLessons a", week)
		if err != nil {
			return err
		}
		lessons = slices.DeleteFunc(lessons, func(u string) bool {
			return !quizURLPattern.MatchString(u) && !examURLPattern.MatchString(u)
		})

		for _, lesson := range lessons {
			attempted, err := d.hasFeedback(ctx, h, lesson)
			if err != nil {
				return err
			}
			if attempted && !emit(lesson+"/view-attempt") {
				return platform.Stop()
			}
		}
	}
	return nil
}

func (d *Downloader) links(ctx context.Context, h *session.Handle, selector, base string) ([]string, error) {
	if err := d.settle(ctx, h, selector); err != nil {
		return nil, err
	}
	doc, err := platform.Document(ctx, h.Page)
	if err != nil {
		return nil, err
	}
	return platform.Links(doc, selector, platform.Location(ctx, h.Page, base)), nil
}

func (d *Downloader) hasFeedback(ctx context.Context, h *session.Handle, lesson string) (bool, error) {
	if err := h.Page.Navigate(ctx, lesson); err != nil {
		return false, err
	}
	if err := d.settle(ctx, h, ".rc-CoverPageRowRightSideGrade"); err != nil {
		return false, err
	}
	doc, err := platform.Document(ctx, h.Page)
	if err != nil {
		return false, err
	}
	return slices.Contains(platform.Texts(doc, "button span"), "View Feedback"), nil
}

// settle waits for selector and then the configured delay.
func (d *Downloader) settle(ctx context.Context, h *session.Handle, selector string) error {
	if err := platform.WaitFor(ctx, h.Page, selector, d.deps.Options.RenderTimeout); err != nil {
		return err
	}
	return platform.Sleep(ctx, d.deps.Options.Delay)
}

// PerformDownload captures one feedback page with everything but the
// graded content hidden.
func (d *Downloader) PerformDownload(ctx context.Context, task domain.DownloadTask) (domain.DownloadResult, error) {
	return platform.Download(ctx, d.deps, task, platform.CaptureSpec{
		ContentSelector: ".rc-TunnelVisionWrapper__content-body",
		Breadcrumbs: func(texts func(string) []string) []string {
			crumbs := texts(".breadcrumb-item")
			if len(crumbs) == 0 {
				return nil
			}
			return crumbs[1:]
		},
		Prettify: prettifyScript,
	})
}

func (d *Downloader) ReportResults(results []domain.DownloadResult) error {
	return platform.Report(d.deps.Out, results, d.deps.Storage.Dir())
}

const prettifyScript = `() => {
  const body = document.querySelector("body")
  const content = document.querySelector(".rc-TunnelVisionWrapper__content-body")
  if (!body || !content) {
    return
  }
  body.appendChild(content)
  document.querySelectorAll("body > div:not(.rc-TunnelVisionWrapper__content-body)").forEach(e => e.style.display = "none")
  body.style.overflow = "auto"
}`
