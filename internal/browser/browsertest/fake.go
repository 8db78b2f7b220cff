// Package browsertest provides in-memory browser fakes for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/veranemoloko/course-archive/internal/browser"
)

var (
	ErrPageClosed   = errors.New("page closed")
	ErrTargetClosed = errors.New("target closed")
)

// Driver launches fake processes. Every page it hands out is passed to
// Setup before use.
type Driver struct {
	LaunchErr error
	Setup     func(*Page)

	mu        sync.Mutex
	processes []*Process
	options   []browser.LaunchOptions
}

func (d *Driver) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Process, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.options = append(d.options, opts)
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	p := &Process{done: make(chan struct{}), setup: d.Setup}
	d.processes = append(d.processes, p)
	return p, nil
}

// Launches returns how many times Launch was called.
func (d *Driver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.options)
}

// Options returns the options of every launch in order.
func (d *Driver) Options() []browser.LaunchOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.options)
}

// Processes returns every launched process in order.
func (d *Driver) Processes() []*Process {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.processes)
}

// Last returns the most recently launched process or nil.
func (d *Driver) Last() *Process {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.processes) == 0 {
		return nil
	}
	return d.processes[len(d.processes)-1]
}

// Process is a fake browser process.
type Process struct {
	NewPageErr error

	setup     func(*Page)
	done      chan struct{}
	crashOnce sync.Once

	mu     sync.Mutex
	closed bool
	pages  []*Page
	seq    int
}

// Crash simulates the process dying without Close.
func (p *Process) Crash() {
	p.crashOnce.Do(func() { close(p.done) })
}

func (p *Process) crashed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) NewPage(ctx context.Context) (browser.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.crashed() {
		return nil, ErrTargetClosed
	}
	if p.NewPageErr != nil {
		return nil, p.NewPageErr
	}
	p.seq++
	page := &Page{id: fmt.Sprintf("page-%d", p.seq), proc: p}
	if p.setup != nil {
		p.setup(page)
	}
	p.pages = append(p.pages, page)
	return page, nil
}

func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Process) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Pages returns every page opened on the process.
func (p *Process) Pages() []*Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.pages)
}

// OpenPages returns the number of pages not yet closed.
func (p *Process) OpenPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, page := range p.pages {
		if !page.IsClosed() {
			n++
		}
	}
	return n
}
