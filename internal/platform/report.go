package platform

import (
	"fmt"
	"io"

	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
)

// Report prints the final summary line.
func Report(out io.Writer, results []domain.DownloadResult, dir string) error {
	if _, err := fmt.Fprintf(out, "\nSaved %d pages to: %s\n", len(results), dir); err != nil {
		return fmt.Errorf("%w: %w", errpkg.ErrReport, err)
	}
	return nil
}
