package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowsketch/pkg/cache"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/render"
)

type fakeRenderer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRenderer) Name() string { return render.EngineMermaid }

func (f *fakeRenderer) Render(_ context.Context, source string, opts render.Options) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<svg data-theme=\"" + opts.Theme + "\">" + source + "</svg>"), nil
}

func newTestRunner(t *testing.T, r render.Renderer) (*Runner, *atomic.Int32) {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, r, log.New(&bytes.Buffer{}))
	runner.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	var rasterized atomic.Int32
	runner.rasterize = func(_ context.Context, svg []byte, scale float64) ([]byte, error) {
		rasterized.Add(1)
		return append([]byte("png:"), svg...), nil
	}
	runner.paginate = func(png []byte) ([]byte, error) {
		return append([]byte("pdf:"), png...), nil
	}
	return runner, &rasterized
}

const testSource = "flowchart TD\nA-->B"

func TestRenderCaches(t *testing.T) {
	fr := &fakeRenderer{}
	runner, _ := newTestRunner(t, fr)
	ctx := context.Background()

	svg1, hit, err := runner.RenderWithCacheInfo(ctx, testSource, Options{})
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	svg2, hit, err := runner.RenderWithCacheInfo(ctx, testSource, Options{})
	if err != nil || !hit {
		t.Fatalf("second render: hit=%v err=%v", hit, err)
	}
	if !bytes.Equal(svg1, svg2) {
		t.Errorf("cached SVG differs: %q vs %q", svg1, svg2)
	}
	if n := fr.calls.Load(); n != 1 {
		t.Errorf("renderer called %d times, want 1", n)
	}

	if _, err := runner.Render(ctx, testSource, Options{Theme: "dark"}); err != nil {
		t.Fatal(err)
	}
	if n := fr.calls.Load(); n != 2 {
		t.Errorf("theme change should miss the cache, renderer called %d times", n)
	}

	if _, hit, _ := runner.RenderWithCacheInfo(ctx, testSource, Options{Refresh: true}); hit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestRenderSyntaxErrorNotCached(t *testing.T) {
	fr := &fakeRenderer{err: &render.SyntaxError{Engine: render.EngineMermaid, Diagnostic: "Parse error on line 2"}}
	runner, _ := newTestRunner(t, fr)

	for range 2 {
		_, err := runner.Render(context.Background(), "flowchart TD\nA-->", Options{})
		var se *render.SyntaxError
		if !stderrors.As(err, &se) {
			t.Fatalf("Render() err = %v, want *SyntaxError", err)
		}
	}
	if n := fr.calls.Load(); n != 2 {
		t.Errorf("renderer called %d times, want 2", n)
	}
}

func TestRenderRejectsEmptySource(t *testing.T) {
	fr := &fakeRenderer{}
	runner, _ := newTestRunner(t, fr)

	_, err := runner.Render(context.Background(), "  \n", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Render() err = %v, want invalid input", err)
	}
	if fr.calls.Load() != 0 {
		t.Error("renderer should not be called")
	}
}

func TestExecute(t *testing.T) {
	runner, rasterized := newTestRunner(t, &fakeRenderer{})
	opts := Options{Formats: []render.Format{render.FormatPDF, render.FormatSVG, render.FormatPNG}}

	result, err := runner.Execute(context.Background(), testSource, opts)
	if err != nil {
		t.Fatal(err)
	}

	if result.Engine != render.EngineMermaid {
		t.Errorf("Engine = %q", result.Engine)
	}
	if len(result.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(result.Artifacts))
	}
	for i, f := range opts.Formats {
		a := result.Artifacts[i]
		if a.Format != f || a.MIMEType != f.MIMEType() {
			t.Errorf("artifact %d = %s %s, want %s", i, a.Format, a.MIMEType, f)
		}
		if want := "diagram-20250314-092653." + string(f); a.Filename != want {
			t.Errorf("Filename = %q, want %q", a.Filename, want)
		}
	}

	pdf, _ := result.Artifact(render.FormatPDF)
	if !strings.HasPrefix(string(pdf.Data), "pdf:png:<svg") {
		t.Errorf("pdf data = %q, want paginated png", pdf.Data)
	}
	if n := rasterized.Load(); n != 1 {
		t.Errorf("rasterized %d times, want 1 shared between png and pdf", n)
	}
	if result.CacheInfo.RenderHit || result.CacheInfo.ExportHit {
		t.Errorf("first run reported cache hits: %+v", result.CacheInfo)
	}

	again, err := runner.Execute(context.Background(), testSource, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheInfo.RenderHit || !again.CacheInfo.ExportHit {
		t.Errorf("second run CacheInfo = %+v, want hits", again.CacheInfo)
	}
	if n := rasterized.Load(); n != 1 {
		t.Errorf("rasterized %d times after cached run, want 1", n)
	}
}

func TestExportScaleChangesKey(t *testing.T) {
	runner, rasterized := newTestRunner(t, &fakeRenderer{})
	svg := []byte("<svg/>")
	ctx := context.Background()

	for _, scale := range []float64{1, 2, 2} {
		if _, err := runner.Export(ctx, svg, Options{Formats: []render.Format{render.FormatPNG}, Scale: scale}); err != nil {
			t.Fatal(err)
		}
	}
	if n := rasterized.Load(); n != 2 {
		t.Errorf("rasterized %d times, want 2", n)
	}
}

func TestExportError(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeRenderer{})
	runner.rasterize = func(context.Context, []byte, float64) ([]byte, error) {
		return nil, errors.New(errors.ErrCodeRendererUnavailable, "rsvg-convert not found")
	}

	_, err := runner.Export(context.Background(), []byte("<svg/>"), Options{Formats: []render.Format{render.FormatSVG, render.FormatPDF}})
	if !errors.Is(err, errors.ErrCodeRendererUnavailable) {
		t.Errorf("Export() err = %v, want renderer unavailable", err)
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Renderer == nil || r.Logger == nil {
		t.Errorf("NewRunner defaults not applied: %+v", r)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
