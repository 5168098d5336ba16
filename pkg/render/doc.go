// Package render turns diagram source into images.
//
// # Engines
//
// A [Renderer] takes diagram source and returns SVG. Two engines exist:
//
//   - [Mermaid] shells out to mermaid-cli (mmdc), which bundles the renderer
//     used by browsers. Install with: npm install -g @mermaid-js/mermaid-cli
//   - [Graphviz] renders DOT sources in-process with go-graphviz.
//
// [Multi] picks the engine per source with [Detect].
//
// Syntax problems are reported as [*SyntaxError] carrying the engine's raw
// diagnostic, which callers show to the user and can hand to the inference
// gateway's Fix action. Every other failure is an ordinary error.
//
// # Format Conversion
//
// [ToPNG] rasterizes SVG through rsvg-convert (librsvg) at a scale factor and
// [ToPDF] places a PNG on an A4 page. [NewArtifact] wraps the result with a
// MIME type and a timestamped download filename.
//
//	svg, err := render.NewMulti(nil).Render(ctx, source, render.Options{})
//	png, err := render.ToPNG(ctx, svg, 2)
//	pdf, err := render.ToPDF(png)
package render
