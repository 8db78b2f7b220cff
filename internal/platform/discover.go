package platform

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/session"
)

var errStopped = errors.New("discovery stopped by consumer")

// Emit hands a discovered page URL to the consumer and reports whether the
// walk should continue.
type Emit func(url string) bool

// Stop is returned by a walk once emit reported false.
func Stop() error {
	return errStopped
}

// Discover opens startURL and runs walk, turning every emitted URL into a
// task with the next index. A failure is yielded last, wrapped in
// ErrDiscovery.
func Discover(ctx context.Context, m *session.Manager, startURL string, walk func(ctx context.Context, h *session.Handle, emit Emit) error) iter.Seq2[domain.DownloadTask, error] {
	return func(yield func(domain.DownloadTask, error) bool) {
		index := 0
		stopped := false
		emit := func(url string) bool {
			if stopped {
				return false
			}
			task := domain.DownloadTask{ID: url, Name: url, Index: index, URL: url}
			index++
			if !yield(task, nil) {
				stopped = true
			}
			return !stopped
		}

		_, err := session.WithPage(ctx, m, startURL, func(ctx context.Context, h *session.Handle) (struct{}, error) {
			return struct{}{}, walk(ctx, h, emit)
		})
		if err == nil || stopped || errors.Is(err, errStopped) {
			return
		}
		yield(domain.DownloadTask{}, fmt.Errorf("%w: %w", errpkg.ErrDiscovery, err))
	}
}
