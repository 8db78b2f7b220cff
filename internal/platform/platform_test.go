package platform

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veranemoloko/course-archive/internal/browser/browsertest"
	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
)

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(
		Platform{Name: "a", Pattern: regexp.MustCompile(`^https://a\.example/`), Concurrency: 4},
		Platform{Name: "b", Pattern: regexp.MustCompile(`^https://b\.example/`), Concurrency: 1},
	)

	p, err := r.Lookup("https://b.example/course")
	require.NoError(t, err)
	assert.Equal(t, "b", p.Name)
	assert.Equal(t, 1, p.Concurrency)

	_, err = r.Lookup("https://c.example/")
	assert.ErrorIs(t, err, errpkg.ErrNoPlatform)
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestLinksAndTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<a class="x" href="/rel/1"> One </a>
		<a class="x" href="https://other.example/abs">Two</a>
		<a class="x">no href</a>
		<a class="x" href="   ">blank</a>`))
	require.NoError(t, err)

	links := Links(doc, "a.x", "https://site.example/base/page")
	assert.Equal(t, []string{"https://site.example/rel/1", "https://other.example/abs"}, links)
	assert.Equal(t, []string{"One", "Two", "no href", "blank"}, Texts(doc, "a.x"))
}

func TestWaitFor(t *testing.T) {
	page := &browsertest.Page{OnWait: func(ctx context.Context, selector string) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	err := WaitFor(context.Background(), page, "#content", 10*time.Millisecond)
	assert.ErrorIs(t, err, errpkg.ErrRenderTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WaitFor(ctx, page, "#content", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errpkg.ErrRenderTimeout)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestEvalBool(t *testing.T) {
	page := &browsertest.Page{OnEval: func(url, js string) (any, error) { return true, nil }}
	ok, err := EvalBool(context.Background(), page, "() => true")
	require.NoError(t, err)
	assert.True(t, ok)

	page = &browsertest.Page{OnEval: func(url, js string) (any, error) { return "yes", nil }}
	_, err = EvalBool(context.Background(), page, "() => 'yes'")
	assert.Error(t, err)
}

func TestLocation_Fallback(t *testing.T) {
	page := &browsertest.Page{OnEval: func(url, js string) (any, error) { return nil, errors.New("detached") }}

	assert.Equal(t, "https://fallback.example", Location(context.Background(), page, "https://fallback.example"))
}

func TestReport(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, Report(&out, []domain.DownloadResult{{}, {}, {}}, "/data/Archive"))

	assert.Equal(t, "\nSaved 3 pages to: /data/Archive\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestReport_WriteFailure(t *testing.T) {
	err := Report(failingWriter{}, nil, "/x")

	assert.ErrorIs(t, err, errpkg.ErrReport)
}
