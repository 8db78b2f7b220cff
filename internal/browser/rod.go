package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

const (
	defaultProbeInterval = time.Second
	pageCloseTimeout     = 5 * time.Second
)

// RodDriver launches Chromium through go-rod.
type RodDriver struct {
	probeInterval time.Duration
	logger        *slog.Logger
}

// NewRodDriver creates a driver. A zero probeInterval uses one second.
func NewRodDriver(probeInterval time.Duration, logger *slog.Logger) *RodDriver {
	if probeInterval <= 0 {
		probeInterval = defaultProbeInterval
	}
	return &RodDriver{probeInterval: probeInterval, logger: logger}
}

// Launch starts a browser process and connects to it. The process is
// killed when ctx is cancelled.
func (d *RodDriver) Launch(ctx context.Context, opts LaunchOptions) (Process, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	for name, val := range opts.Flags {
		if val == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), val)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	p := &rodProcess{
		launcher: l,
		browser:  b,
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
		logger:   d.logger,
	}
	go p.watch(d.probeInterval)

	d.logger.Debug("browser launched", "control_url", controlURL, "headless", opts.Headless)
	return p, nil
}

type rodProcess struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	logger   *slog.Logger

	done      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// watch probes the browser until it stops answering or Close is called.
func (p *rodProcess) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.closing:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_, err := p.browser.Context(ctx).Version()
			cancel()
			if err == nil {
				continue
			}
			select {
			case <-p.closing:
				return
			default:
			}
			p.logger.Warn("browser stopped responding", "error", err)
			close(p.done)
			return
		}
	}
}

func (p *rodProcess) Done() <-chan struct{} {
	return p.done
}

func (p *rodProcess) NewPage(ctx context.Context) (Page, error) {
	page, err := p.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	pageCtx, cancel := context.WithCancel(context.Background())
	page = page.Context(pageCtx)
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		cancel()
		_ = page.Close()
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	return &rodPage{page: page, cancel: cancel}, nil
}

func (p *rodProcess) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
		p.closeErr = p.browser.Close()
		p.launcher.Kill()
		p.launcher.Cleanup()
	})
	return p.closeErr
}

type rodPage struct {
	page   *rod.Page
	cancel context.CancelFunc
}

func (r *rodPage) ID() string {
	return string(r.page.TargetID)
}

func (r *rodPage) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load of %s: %w", url, err)
	}
	return nil
}

func (r *rodPage) WaitElement(ctx context.Context, selector string) error {
	if _, err := r.page.Context(ctx).Element(selector); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (r *rodPage) Input(ctx context.Context, selector, text string) error {
	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	return el.Input(text)
}

func (r *rodPage) Click(ctx context.Context, selector string) error {
	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodPage) HTML(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *rodPage) Eval(ctx context.Context, js string) ([]byte, error) {
	res, err := r.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	return res.Value.MarshalJSON()
}

func (r *rodPage) Cookies(ctx context.Context) ([]Cookie, error) {
	cookies, err := r.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(cookies), nil
}

func (r *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return r.page.Context(ctx).SetCookies(cookieParams(cookies))
}

func (r *rodPage) WaitResponse(ctx context.Context, match func(string) bool, trigger func() error) (int, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	status := 0
	wait := r.page.Context(waitCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Response == nil || !match(e.Response.URL) {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := trigger(); err != nil {
		return 0, err
	}
	wait()

	if status == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, errors.New("no matching response")
	}
	return status, nil
}

func (r *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return r.page.Context(ctx).Screenshot(true, nil)
}

func (r *rodPage) PDF(ctx context.Context) ([]byte, error) {
	stream, err := r.page.Context(ctx).PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return io.ReadAll(stream)
}

func (r *rodPage) ObserveNetwork(fn func(NetworkEvent)) {
	wait := r.page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			fn(NetworkEvent{Kind: RequestStarted, RequestID: string(e.RequestID)})
		},
		func(e *proto.NetworkLoadingFinished) {
			fn(NetworkEvent{Kind: RequestFinished, RequestID: string(e.RequestID)})
		},
		func(e *proto.NetworkLoadingFailed) {
			fn(NetworkEvent{Kind: RequestFinished, RequestID: string(e.RequestID)})
		},
	)
	go wait()
}

func (r *rodPage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pageCloseTimeout)
	defer cancel()
	err := r.page.Context(ctx).Close()
	r.cancel()
	return err
}
