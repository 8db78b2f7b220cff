package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/veranemoloko/course-archive/internal/browser"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
)

// WaitFor waits for selector to appear and converts an expired timeout
// into ErrRenderTimeout.
func WaitFor(ctx context.Context, page browser.Page, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.WaitElement(waitCtx, selector); err != nil {
		if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: waiting for %q", errpkg.ErrRenderTimeout, selector)
		}
		return err
	}
	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Document parses the current DOM of page.
func Document(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return doc, nil
}

// Texts returns the trimmed text of every element matching selector.
func Texts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// Links returns the href of every element matching selector resolved
// against base.
func Links(doc *goquery.Document, selector, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = nil
	}

	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if baseURL != nil {
			ref = baseURL.ResolveReference(ref)
		}
		out = append(out, ref.String())
	})
	return out
}

// Location returns the URL the page ended up at after redirects. It falls
// back to fallback when the page does not report one.
func Location(ctx context.Context, page browser.Page, fallback string) string {
	raw, err := page.Eval(ctx, `() => window.location.href`)
	if err != nil {
		return fallback
	}
	var href string
	if err := json.Unmarshal(raw, &href); err != nil || href == "" {
		return fallback
	}
	return href
}

// EvalBool runs js and decodes a boolean result.
func EvalBool(ctx context.Context, page browser.Page, js string) (bool, error) {
	raw, err := page.Eval(ctx, js)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf("decode script result: %w", err)
	}
	return ok, nil
}
