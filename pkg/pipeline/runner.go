package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flowsketch/pkg/cache"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/observability"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// Runner encapsulates rendering and export with caching.
//
// The Runner is stateless except for its cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Renderer render.Renderer
	Logger   *log.Logger

	// Now stamps artifact filenames. Defaults to time.Now.
	Now func() time.Time

	rasterize func(ctx context.Context, svg []byte, scale float64) ([]byte, error)
	paginate  func(png []byte) ([]byte, error)
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer uses
// cache.DefaultKeyer and a nil renderer dispatches between Mermaid and
// Graphviz with render.NewMulti.
func NewRunner(c cache.Cache, keyer cache.Keyer, r render.Renderer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if r == nil {
		r = render.NewMulti()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Renderer:  r,
		Logger:    logger,
		Now:       time.Now,
		rasterize: render.ToPNG,
		paginate:  render.ToPDF,
	}
}

// Execute renders source and exports it in every requested format.
func (r *Runner) Execute(ctx context.Context, source string, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{Engine: render.Detect(source)}

	start := time.Now()
	svg, hit, err := r.RenderWithCacheInfo(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	result.SVG = svg
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit

	start = time.Now()
	artifacts, hit, err := r.ExportWithCacheInfo(ctx, svg, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(start)
	result.CacheInfo.ExportHit = hit

	r.Logger.Debug("exported diagram",
		"engine", result.Engine,
		"formats", opts.Formats,
		"render", result.Stats.RenderTime,
		"export", result.Stats.ExportTime,
		"cached", result.CacheInfo.RenderHit)

	return result, nil
}

// RenderWithCacheInfo renders source to SVG and reports whether the SVG came
// from the cache. Syntax errors are returned as *render.SyntaxError and never
// cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, source string, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if err := errors.ValidateSource(source, MaxSourceBytes); err != nil {
		return nil, false, err
	}

	key := r.Keyer.RenderKey(cache.HashString(source), opts.RenderKeyOpts(render.Detect(source)))
	if data, ok := r.lookup(ctx, stageRender, key, opts.Refresh); ok {
		return data, true, nil
	}

	svg, err := r.Renderer.Render(ctx, source, opts.RenderOptions())
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, stageRender, key, svg, TTLRender)
	return svg, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, source string, opts Options) ([]byte, error) {
	svg, _, err := r.RenderWithCacheInfo(ctx, source, opts)
	return svg, err
}

// ExportWithCacheInfo converts svg into every requested format. Formats are
// produced concurrently; a PDF reuses the PNG of the same run. The boolean
// reports whether every raster export came from the cache.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, svg []byte, opts Options) ([]render.Artifact, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	svgHash := cache.Hash(svg)
	now := r.now()
	artifacts := make([]render.Artifact, len(opts.Formats))
	hits := make([]bool, len(opts.Formats))

	// PNG and PDF exports share one rasterization.
	png := sync.OnceValues(func() (cached, error) {
		data, hit, err := r.artifact(ctx, svgHash, render.FormatPNG, opts, func() ([]byte, error) {
			return r.toPNG(ctx, svg, opts.Scale)
		})
		return cached{data, hit}, err
	})

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range opts.Formats {
		g.Go(func() error {
			var (
				data []byte
				hit  = true
				err  error
			)
			start := time.Now()
			switch f {
			case render.FormatSVG:
				data = svg
			case render.FormatPNG:
				var p cached
				p, err = png()
				data, hit = p.data, p.hit
			case render.FormatPDF:
				data, hit, err = r.artifact(ctx, svgHash, f, opts, func() ([]byte, error) {
					p, err := png()
					if err != nil {
						return nil, err
					}
					return r.toPDF(p.data)
				})
			default:
				err = errors.New(errors.ErrCodeUnsupported, "unsupported format %q", f)
			}
			observability.Render().OnExport(ctx, string(f), len(data), time.Since(start), err)
			if err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			artifacts[i] = render.NewArtifact(f, data, now)
			hits[i] = hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	allHit := true
	for _, h := range hits {
		allHit = allHit && h
	}
	return artifacts, allHit, nil
}

// Export is a convenience wrapper that discards the cache hit info.
func (r *Runner) Export(ctx context.Context, svg []byte, opts Options) ([]render.Artifact, error) {
	artifacts, _, err := r.ExportWithCacheInfo(ctx, svg, opts)
	return artifacts, err
}

type cached struct {
	data []byte
	hit  bool
}

// artifact returns the cached export for f or produces and caches it.
func (r *Runner) artifact(ctx context.Context, svgHash string, f render.Format, opts Options, produce func() ([]byte, error)) ([]byte, bool, error) {
	key := r.Keyer.ArtifactKey(svgHash, opts.ArtifactKeyOpts(f))
	if data, ok := r.lookup(ctx, stageArtifact, key, opts.Refresh); ok {
		return data, true, nil
	}
	data, err := produce()
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, stageArtifact, key, data, TTLArtifact)
	return data, false, nil
}

func (r *Runner) lookup(ctx context.Context, stage, key string, refresh bool) ([]byte, bool) {
	if refresh {
		return nil, false
	}
	data, ok, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "stage", stage, "err", err)
	}
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, stage)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, stage)
	return data, true
}

func (r *Runner) store(ctx context.Context, stage, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "stage", stage, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, stage, len(data))
}

func (r *Runner) toPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if r.rasterize == nil {
		return render.ToPNG(ctx, svg, scale)
	}
	return r.rasterize(ctx, svg, scale)
}

func (r *Runner) toPDF(png []byte) ([]byte, error) {
	if r.paginate == nil {
		return render.ToPDF(png)
	}
	return r.paginate(png)
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
