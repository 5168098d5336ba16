// Package pipeline renders diagram source and exports it with caching.
//
// The pipeline has two stages:
//
//  1. Render: diagram source to SVG through an external engine (mmdc or
//     Graphviz), cached by source hash and render options
//  2. Export: SVG to the requested formats (svg, png, pdf), rendered
//     concurrently and cached by SVG hash and export options
//
// Both the CLI and the HTTP API run exports through a [Runner] so that cache
// keys and defaults are the same everywhere.
//
//	runner := pipeline.NewRunner(c, nil, nil, logger)
//	result, err := runner.Execute(ctx, source, pipeline.Options{
//	    Formats: []render.Format{render.FormatSVG, render.FormatPDF},
//	})
//	var se *render.SyntaxError
//	if errors.As(err, &se) {
//	    // show se.Diagnostic, offer a fix
//	}
package pipeline

import (
	"slices"
	"time"

	"github.com/matzehuels/flowsketch/pkg/cache"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// MaxSourceBytes bounds the diagram source accepted by the pipeline.
	MaxSourceBytes = 1 << 20

	// TTLRender is how long rendered SVG stays cached.
	TTLRender = 7 * 24 * time.Hour

	// TTLArtifact is how long PNG and PDF exports stay cached.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache stage names reported to the cache hooks.
const (
	stageRender   = "render"
	stageArtifact = "artifact"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a pipeline run. The zero value renders SVG with the
// default theme on a white background.
type Options struct {
	Theme      string          `json:"theme,omitempty"`
	Background string          `json:"background,omitempty"`
	Formats    []render.Format `json:"formats,omitempty"`

	// Scale is the PNG upscale factor; zero means render.DefaultScale.
	Scale float64 `json:"scale,omitempty"`

	// Refresh bypasses cache reads. Results are still written.
	Refresh bool `json:"refresh,omitempty"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Theme != "" && !slices.Contains(render.Themes, o.Theme) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown theme %q (expected one of %v)", o.Theme, render.Themes)
	}
	if o.Scale == 0 {
		o.Scale = render.DefaultScale
	}
	if err := render.ValidateScale(o.Scale); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []render.Format{render.FormatSVG}
	}
	for _, f := range o.Formats {
		if _, err := render.ParseFormat(string(f)); err != nil {
			return err
		}
	}
	o.Formats = dedupe(o.Formats)
	o.validated = true
	return nil
}

// RenderOptions returns the engine options with defaults applied.
func (o *Options) RenderOptions() render.Options {
	return render.Options{Theme: o.Theme, Background: o.Background}.WithDefaults()
}

// RenderKeyOpts returns cache key options for the render stage.
func (o *Options) RenderKeyOpts(engine string) cache.RenderKeyOpts {
	ro := o.RenderOptions()
	return cache.RenderKeyOpts{Engine: engine, Theme: ro.Theme, Background: ro.Background}
}

// ArtifactKeyOpts returns cache key options for an export. Scale only
// affects raster output, so it is left out of SVG keys.
func (o *Options) ArtifactKeyOpts(f render.Format) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: string(f)}
	if f != render.FormatSVG {
		opts.Scale = o.Scale
	}
	return opts
}

func dedupe(formats []render.Format) []render.Format {
	out := make([]render.Format, 0, len(formats))
	for _, f := range formats {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Engine is the renderer that produced the SVG.
	Engine string

	// SVG is the rendered diagram.
	SVG []byte

	// Artifacts holds one export per requested format, in request order.
	Artifacts []render.Artifact

	Stats     Stats
	CacheInfo CacheInfo
}

// Artifact returns the export for f, if it was requested.
func (r *Result) Artifact(f render.Format) (render.Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Format == f {
			return a, true
		}
	}
	return render.Artifact{}, false
}

// Stats contains pipeline timing information.
type Stats struct {
	RenderTime time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // SVG came from cache
	ExportHit bool // every raster export came from cache
}
