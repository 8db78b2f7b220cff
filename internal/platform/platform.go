// Package platform defines what a course platform adapter must provide and
// how adapters are selected for a course URL.
package platform

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"time"

	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/capture"
	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/session"
	"github.com/veranemoloko/course-archive/internal/storage"
)

// Downloader is the capability set of one course platform.
type Downloader interface {
	// Login authenticates and leaves the session cookie set populated.
	Login(ctx context.Context) error
	// DownloadTasks enumerates the pages of the course once. A discovery
	// failure is yielded as the last element.
	DownloadTasks(ctx context.Context) iter.Seq2[domain.DownloadTask, error]
	// PerformDownload captures one page.
	PerformDownload(ctx context.Context, task domain.DownloadTask) (domain.DownloadResult, error)
	// ReportResults summarizes the saved pages in task order.
	ReportResults(results []domain.DownloadResult) error
}

// Credentials are the platform account.
type Credentials struct {
	User     string
	Password string
}

// Options tune page waits.
type Options struct {
	Delay         time.Duration
	IdleQuiet     time.Duration
	RenderTimeout time.Duration
	Headless      bool
	BrowserBin    string
}

// Deps are the collaborators handed to an adapter.
type Deps struct {
	CourseURL   string
	Credentials Credentials
	Options     Options
	Session     *session.Manager
	Driver      browser.Driver
	Capturer    *capture.Capturer
	Storage     *storage.FileStorage
	Out         io.Writer
	Logger      *slog.Logger
}

// Platform describes one supported course site.
type Platform struct {
	Name        string
	Pattern     *regexp.Regexp
	Concurrency int
	New         func(Deps) Downloader
}

// Registry selects a platform by course URL.
type Registry struct {
	platforms []Platform
}

func NewRegistry(platforms ...Platform) *Registry {
	return &Registry{platforms: platforms}
}

// Lookup returns the first platform whose pattern matches courseURL.
func (r *Registry) Lookup(courseURL string) (Platform, error) {
	for _, p := range r.platforms {
		if p.Pattern.MatchString(courseURL) {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("%w: %s", errpkg.ErrNoPlatform, courseURL)
}

// Names lists the registered platforms.
func (r *Registry) Names() []string {
	names := make([]string, len(r.platforms))
	for i, p := range r.platforms {
		names[i] = p.Name
	}
	return names
}
