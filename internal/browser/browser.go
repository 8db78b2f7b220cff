// Package browser abstracts the controlled browser process so that the
// session manager and the platform adapters do not depend on a concrete
// DevTools client.
package browser

import "context"

// Cookie is a browser cookie carried between pages.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site,omitempty"`
}

// NetworkEventKind distinguishes request start and end notifications.
type NetworkEventKind int

const (
	RequestStarted NetworkEventKind = iota
	RequestFinished
)

// NetworkEvent is emitted for every request a page issues and completes.
type NetworkEvent struct {
	Kind      NetworkEventKind
	RequestID string
}

// LaunchOptions controls how a browser process is started.
type LaunchOptions struct {
	Headless bool
	Bin      string
	// Flags are extra command line switches without the leading dashes.
	// An empty value adds the switch without an argument.
	Flags map[string]string
}

// Driver starts browser processes.
type Driver interface {
	Launch(ctx context.Context, opts LaunchOptions) (Process, error)
}

// Process is a running browser.
type Process interface {
	NewPage(ctx context.Context) (Page, error)
	// Done is closed when the process goes away without Close being called.
	Done() <-chan struct{}
	Close() error
}

// Page is one open tab.
type Page interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	WaitElement(ctx context.Context, selector string) error
	Input(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	// Eval runs a JavaScript function expression, awaiting a returned
	// promise, and returns the JSON encoded result.
	Eval(ctx context.Context, js string) ([]byte, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	// WaitResponse calls trigger and waits for the first response whose URL
	// satisfies match, returning its HTTP status.
	WaitResponse(ctx context.Context, match func(url string) bool, trigger func() error) (int, error)
	Screenshot(ctx context.Context) ([]byte, error)
	PDF(ctx context.Context) ([]byte, error)
	// ObserveNetwork registers fn for request notifications until Close.
	ObserveNetwork(fn func(NetworkEvent))
	Close() error
}
