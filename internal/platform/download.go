package platform

import (
	"context"
	"fmt"

	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/domain"
	"github.com/veranemoloko/course-archive/internal/naming"
	"github.com/veranemoloko/course-archive/internal/readiness"
	"github.com/veranemoloko/course-archive/internal/session"
)

// CaptureSpec describes how a platform prepares one page for capture.
type CaptureSpec struct {
	// ContentSelector must appear before anything else is done.
	ContentSelector string
	// ContentReady is an optional platform specific render guard.
	ContentReady func(ctx context.Context, page browser.Page) (bool, error)
	// Breadcrumbs extracts the title parts from the page.
	Breadcrumbs func(texts func(selector string) []string) []string
	// Prettify is a script run right before capture.
	Prettify string
}

// Download navigates to the task URL, waits for the page to settle, names
// and saves it.
func Download(ctx context.Context, deps Deps, task domain.DownloadTask, cs CaptureSpec) (domain.DownloadResult, error) {
	return session.WithPage(ctx, deps.Session, task.URL, func(ctx context.Context, h *session.Handle) (domain.DownloadResult, error) {
		opts := deps.Options
		if err := WaitFor(ctx, h.Page, cs.ContentSelector, opts.RenderTimeout); err != nil {
			return domain.DownloadResult{}, err
		}
		if err := h.Tracker.WaitIdle(ctx, opts.IdleQuiet, opts.RenderTimeout); err != nil {
			return domain.DownloadResult{}, fmt.Errorf("wait for network idle: %w", err)
		}
		if cs.ContentReady != nil {
			probe := func(ctx context.Context) (bool, error) { return cs.ContentReady(ctx, h.Page) }
			if err := readiness.WaitContentReady(ctx, opts.RenderTimeout, probe); err != nil {
				return domain.DownloadResult{}, fmt.Errorf("wait for content: %w", err)
			}
		}
		if err := Sleep(ctx, opts.Delay); err != nil {
			return domain.DownloadResult{}, err
		}

		doc, err := Document(ctx, h.Page)
		if err != nil {
			return domain.DownloadResult{}, err
		}
		var crumbs []string
		if cs.Breadcrumbs != nil {
			crumbs = cs.Breadcrumbs(func(selector string) []string { return Texts(doc, selector) })
		}
		baseName := naming.BaseName(task.Index, naming.BuildTitle(crumbs))

		if cs.Prettify != "" {
			if _, err := h.Page.Eval(ctx, cs.Prettify); err != nil {
				return domain.DownloadResult{}, fmt.Errorf("prettify page: %w", err)
			}
		}

		path, err := deps.Capturer.Save(ctx, h.Page, baseName)
		if err != nil {
			return domain.DownloadResult{}, err
		}
		return domain.DownloadResult{Task: task, BaseName: baseName, Path: path}, nil
	})
}
