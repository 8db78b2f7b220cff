package browsertest

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/veranemoloko/course-archive/internal/browser"
)

// Page is a fake tab. The exported hooks may be set by Driver.Setup; a nil
// hook makes the call succeed with a zero value.
type Page struct {
	OnNavigate   func(ctx context.Context, url string) error
	OnWait       func(ctx context.Context, selector string) error
	OnHTML       func(url string) string
	OnEval       func(url, js string) (any, error)
	OnResponse   func(url string) (responseURL string, status int)
	OnScreenshot func(ctx context.Context) ([]byte, error)
	OnPDF        func(ctx context.Context) ([]byte, error)
	CloseErr     error
	// StoredCookies are returned by Cookies in addition to those set.
	StoredCookies []browser.Cookie

	id   string
	proc *Process

	mu       sync.Mutex
	url      string
	cookies  []browser.Cookie
	inputs   map[string]string
	clicks   []string
	evals    []string
	observer func(browser.NetworkEvent)
	closed   bool
}

func (p *Page) ID() string { return p.id }

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// AppliedCookies returns the cookies set on the page.
func (p *Page) AppliedCookies() []browser.Cookie {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.cookies)
}

// Inputs returns the text typed into each selector.
func (p *Page) Inputs() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.inputs))
	for k, v := range p.inputs {
		out[k] = v
	}
	return out
}

// Clicks returns clicked selectors in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.clicks)
}

// Evals returns every evaluated script in order.
func (p *Page) Evals() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.evals)
}

// IsClosed reports whether Close was called.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Emit delivers a network event to the registered observer.
func (p *Page) Emit(ev browser.NetworkEvent) {
	p.mu.Lock()
	fn := p.observer
	p.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (p *Page) alive() error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPageClosed
	}
	if p.proc != nil && p.proc.crashed() {
		return ErrTargetClosed
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.alive(); err != nil {
		return err
	}
	if p.OnNavigate != nil {
		if err := p.OnNavigate(ctx, url); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *Page) WaitElement(ctx context.Context, selector string) error {
	if err := p.alive(); err != nil {
		return err
	}
	if p.OnWait != nil {
		return p.OnWait(ctx, selector)
	}
	return nil
}

func (p *Page) Input(ctx context.Context, selector, text string) error {
	if err := p.alive(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inputs == nil {
		p.inputs = make(map[string]string)
	}
	p.inputs[selector] = text
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.alive(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := p.alive(); err != nil {
		return "", err
	}
	if p.OnHTML == nil {
		return "<html><body></body></html>", nil
	}
	return p.OnHTML(p.URL()), nil
}

func (p *Page) Eval(ctx context.Context, js string) ([]byte, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.evals = append(p.evals, js)
	p.mu.Unlock()

	var v any
	if p.OnEval != nil {
		var err error
		if v, err = p.OnEval(p.URL(), js); err != nil {
			return nil, err
		}
	}
	return json.Marshal(v)
}

func (p *Page) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(slices.Clone(p.cookies), p.StoredCookies...), nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	if err := p.alive(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, cookies...)
	return nil
}

func (p *Page) WaitResponse(ctx context.Context, match func(string) bool, trigger func() error) (int, error) {
	if err := p.alive(); err != nil {
		return 0, err
	}
	if err := trigger(); err != nil {
		return 0, err
	}
	if p.OnResponse == nil {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	url, status := p.OnResponse(p.URL())
	if !match(url) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return status, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if p.OnScreenshot != nil {
		return p.OnScreenshot(ctx)
	}
	return []byte("PNG"), nil
}

func (p *Page) PDF(ctx context.Context) ([]byte, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if p.OnPDF != nil {
		return p.OnPDF(ctx)
	}
	return []byte("%PDF"), nil
}

func (p *Page) ObserveNetwork(fn func(browser.NetworkEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = fn
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.observer = nil
	return p.CloseErr
}
