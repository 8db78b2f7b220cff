// Package capture saves a rendered page as an image or a document.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/domain"
	"github.com/veranemoloko/course-archive/internal/metrics"
	"github.com/veranemoloko/course-archive/internal/readiness"
	"github.com/veranemoloko/course-archive/internal/storage"
)

// Capturer writes page captures into storage.
type Capturer struct {
	storage *storage.FileStorage
	format  domain.Format
	timeout time.Duration
	logger  *slog.Logger
}

// NewCapturer creates a Capturer. A zero timeout uses the default save
// ceiling.
func NewCapturer(fs *storage.FileStorage, format domain.Format, timeout time.Duration, logger *slog.Logger) *Capturer {
	if timeout <= 0 {
		timeout = readiness.DefaultSaveTimeout
	}
	return &Capturer{
		storage: fs,
		format:  format,
		timeout: timeout,
		logger:  logger,
	}
}

// Format returns the capture format.
func (c *Capturer) Format() domain.Format {
	return c.format
}

// Save captures page as baseName plus the format extension and returns the
// written path. It fails with ErrSaveTimeout when the capture does not
// finish within the ceiling.
func (c *Capturer) Save(ctx context.Context, page browser.Page, baseName string) (string, error) {
	filename := baseName + c.format.Ext()

	var size int
	err := readiness.SaveWithin(ctx, c.timeout, func(ctx context.Context) error {
		data, err := c.render(ctx, page)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.storage.WriteFile(filename, data); err != nil {
			return err
		}
		size = len(data)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("save %q: %w", filename, err)
	}

	metrics.BytesSaved.Add(float64(size))
	c.logger.Debug("page saved", "file", filename, "bytes", size)
	return c.storage.Path(filename), nil
}

func (c *Capturer) render(ctx context.Context, page browser.Page) ([]byte, error) {
	switch c.format {
	case domain.FormatPNG:
		return page.Screenshot(ctx)
	case domain.FormatPDF:
		return page.PDF(ctx)
	default:
		return nil, fmt.Errorf("unsupported format %q", c.format)
	}
}
