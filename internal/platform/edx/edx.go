// Package edx archives courses from courses.edx.org.
package edx

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/platform"
	"github.com/veranemoloko/course-archive/internal/session"
)

// CourseURLPattern matches the outline page of an edX course.
var CourseURLPattern = regexp.MustCompile(`^https://courses.edx.org/courses/.*/course/$`)

const (
	Name               = "edX"
	DefaultConcurrency = 4

	loginURL = "https://courses.edx.org/login"
)

var loginEndpoints = []string{
	"https://courses.edx.org/user_api/v1/account/login_session/",
	"https://courses.edx.org/login_ajax",
}

// Platform registers the edX adapter.
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

// Login submits the credentials on the login form and keeps the cookies
// the site sets.
func (d *Downloader) Login(ctx context.Context) error {
	_, err := session.WithPage(ctx, d.deps.Session, loginURL, func(ctx context.Context, h *session.Handle) (struct{}, error) {
		timeout := d.deps.Options.RenderTimeout
		if err := platform.WaitFor(ctx, h.Page, "#login-email", timeout); err != nil {
			return struct{}{}, err
		}
		if err := h.Page.Input(ctx, "#login-email", d.deps.Credentials.User); err != nil {
			return struct{}{}, err
		}
		if err := h.Page.Input(ctx, "#login-password", d.deps.Credentials.Password); err != nil {
			return struct{}{}, err
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		status, err := h.Page.WaitResponse(waitCtx,
			func(u string) bool { return slices.Contains(loginEndpoints, u) },
			func() error { return h.Page.Click(ctx, ".login-button") },
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: no login response: %w", errpkg.ErrAuth, err)
		}
		if status != http.StatusOK {
			return struct{}{}, fmt.Errorf("%w: login response status code: %d", errpkg.ErrAuth, status)
		}

		cookies, err := h.Page.Cookies(ctx)
		if err != nil {
			return struct{}{}, fmt.Errorf("read cookies: %w", err)
		}
		d.deps.Session.SetCookies(cookies)
		return struct{}{}, nil
	})
	return err
}

// DownloadTasks walks the course outline and every subsection, yielding
// one task per unit.
func (d *Downloader) DownloadTasks(ctx context.Context) iter.Seq2[domain.DownloadTask, error] {
	return platform.Discover(ctx, d.deps.Session, d.deps.CourseURL, d.walk)
}

func (d *Downloader) walk(ctx context.Context, h *session.Handle, emit platform.Emit) error {
	opts := d.deps.Options
	if err := h.Tracker.WaitIdle(ctx, opts.IdleQuiet, opts.RenderTimeout); err != nil {
		return fmt.Errorf("course outline: %w", err)
	}
	doc, err := platform.Document(ctx, h.Page)
	if err != nil {
		return err
	}
	subsections := platform.Links(doc, "a.outline-button", platform.Location(ctx, h.Page, d.deps.CourseURL))

	for _, sub := range subsections {
		if err := h.Page.Navigate(ctx, sub); err != nil {
			return err
		}
		if err := h.Tracker.WaitIdle(ctx, opts.IdleQuiet, opts.RenderTimeout); err != nil {
			return fmt.Errorf("subsection %s: %w", sub, err)
		}
		doc, err := platform.Document(ctx, h.Page)
		if err != nil {
			return err
		}

		location := platform.Location(ctx, h.Page, sub)
		for _, element := range unitElements(doc) {
			u, err := unitURL(location, element)
			if err != nil {
				return err
			}
			if !emit(u) {
				return platform.Stop()
			}
		}
	}
	return nil
}

func unitElements(doc *goquery.Document) []string {
	var out []string
	doc.Find("button.tab.nav-item").Each(func(_ int, s *goquery.Selection) {
		if el, ok := s.Attr("data-element"); ok && strings.TrimSpace(el) != "" {
			out = append(out, strings.TrimSpace(el))
		}
	})
	return out
}

// unitURL appends the unit position to the subsection path.
func unitURL(location, element string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse subsection url %q: %w", location, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + element
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// PerformDownload captures one unit once its math has been typeset.
func (d *Downloader) PerformDownload(ctx context.Context, task domain.DownloadTask) (domain.DownloadResult, error) {
	return platform.Download(ctx, d.deps, task, platform.CaptureSpec{
		ContentSelector: "#seq_content",
		ContentReady:    mathJaxReady,
		Breadcrumbs: func(texts func(string) []string) []string {
			crumbs := slices.DeleteFunc(texts(".breadcrumbs span"), func(s string) bool { return s == "" })
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

func mathJaxReady(ctx context.Context, page browser.Page) (bool, error) {
	return platform.EvalBool(ctx, page, mathJaxScript)
}

// mathJaxScript resolves true once MathJax exists and its queue has drained.
const mathJaxScript = `() => new Promise(resolve => {
  if (typeof MathJax === "undefined" || !MathJax.Hub) {
    resolve(false)
    return
  }
  MathJax.Hub.Queue(() => resolve(true))
})`

// prettifyScript expands hidden answers and hides navigation chrome.
const prettifyScript = `() => {
  if (typeof $ === "undefined") {
    return
  }
  $(".show").trigger("click")
  $(".hideshowbottom").trigger("click")
  $(".discussion-show.shown").trigger("click")
  $([
    ".discussion-module",
    "header",
    "#footer-edx-v3",
    ".course-tabs",
    ".course-expiration-message",
    ".verification-sock",
    "#frontend-component-cookie-policy-banner",
    ".sequence-bottom",
    ".sequence-nav",
    ".nav-utilities",
    ".course-license",
    ".bookmark-button-wrapper",
    ".subtitles",
    ".video-wrapper"
  ].join(",")).hide()
}`
