package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veranemoloko/course-archive/internal/browser/browsertest"
	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCapturer_SavePDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Archive")
	c := NewCapturer(storage.NewFileStorage(dir), domain.FormatPDF, time.Second, newTestLogger())
	page := &browsertest.Page{OnPDF: func(ctx context.Context) ([]byte, error) { return []byte("%PDF-1.7"), nil }}

	path, err := c.Save(context.Background(), page, "1 - Intro")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1 - Intro.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestCapturer_SavePNG(t *testing.T) {
	dir := t.TempDir()
	c := NewCapturer(storage.NewFileStorage(dir), domain.FormatPNG, time.Second, newTestLogger())

	path, err := c.Save(context.Background(), &browsertest.Page{}, "2 - Quiz")

	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
	assert.FileExists(t, path)
}

func TestCapturer_SaveTimeout(t *testing.T) {
	dir := t.TempDir()
	c := NewCapturer(storage.NewFileStorage(dir), domain.FormatPDF, 20*time.Millisecond, newTestLogger())
	release := make(chan struct{})
	defer close(release)
	page := &browsertest.Page{OnPDF: func(ctx context.Context) ([]byte, error) {
		<-release
		return []byte("late"), nil
	}}

	_, err := c.Save(context.Background(), page, "3 - Wedged")

	assert.ErrorIs(t, err, errpkg.ErrSaveTimeout)
	assert.NoFileExists(t, filepath.Join(dir, "3 - Wedged.pdf"))
}

func TestCapturer_RenderFailure(t *testing.T) {
	c := NewCapturer(storage.NewFileStorage(t.TempDir()), domain.FormatPNG, time.Second, newTestLogger())
	boom := errors.New("target crashed")
	page := &browsertest.Page{OnScreenshot: func(ctx context.Context) ([]byte, error) { return nil, boom }}

	_, err := c.Save(context.Background(), page, "x")

	assert.ErrorIs(t, err, boom)
}
