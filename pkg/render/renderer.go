package render

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/flowsketch/pkg/observability"
)

// Engine names.
const (
	EngineMermaid  = "mermaid"
	EngineGraphviz = "graphviz"
)

// Renderer draws diagram source as SVG.
type Renderer interface {
	// Name returns the engine name.
	Name() string

	// Render returns SVG bytes, or a *SyntaxError if the engine rejected the
	// source.
	Render(ctx context.Context, source string, opts Options) ([]byte, error)
}

// Options control engine output.
type Options struct {
	// Theme is the Mermaid base theme (default, dark, forest, neutral). An
	// init directive in the source takes precedence.
	Theme string

	// Background is a CSS colour or "transparent".
	Background string
}

// Defaults for Options fields.
const (
	DefaultTheme      = "default"
	DefaultBackground = "white"
)

// WithDefaults fills empty fields.
func (o Options) WithDefaults() Options {
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
	if o.Background == "" {
		o.Background = DefaultBackground
	}
	return o
}

// Themes lists the Mermaid base themes.
var Themes = []string{"default", "dark", "forest", "neutral", "base"}

// SyntaxError reports source the engine could not parse.
type SyntaxError struct {
	Engine     string
	Diagnostic string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s syntax error: %s", e.Engine, e.Diagnostic)
}

// AsSyntaxError returns the *SyntaxError in err's chain, if any.
func AsSyntaxError(err error) (*SyntaxError, bool) {
	var se *SyntaxError
	ok := errors.As(err, &se)
	return se, ok
}

// dotHeader matches the start of a DOT graph: an optional "strict", the graph
// kind, an optional ID and the opening brace. Mermaid's "graph TD" header never
// has a brace after the direction, so the two cannot be confused.
var dotHeader = regexp.MustCompile(`^(?:strict\s+)?(?:di)?graph(?:\s+(?:[A-Za-z_][\w]*|"[^"]*"))?\s*\{`)

// Detect returns the engine for source. Anything that is not a DOT graph is
// assumed to be Mermaid.
func Detect(source string) string {
	s := strings.TrimSpace(source)
	for strings.HasPrefix(s, "//") || strings.HasPrefix(s, "#") {
		_, rest, _ := strings.Cut(s, "\n")
		s = strings.TrimSpace(rest)
	}
	if dotHeader.MatchString(s) {
		return EngineGraphviz
	}
	return EngineMermaid
}

// Multi dispatches to an engine chosen by [Detect].
type Multi struct {
	engines map[string]Renderer
}

// NewMulti creates a dispatcher over the given engines. With no engines the
// default Mermaid and Graphviz renderers are used.
func NewMulti(engines ...Renderer) *Multi {
	if len(engines) == 0 {
		engines = []Renderer{NewMermaid(MermaidConfig{}), NewGraphviz()}
	}
	m := &Multi{engines: make(map[string]Renderer, len(engines))}
	for _, e := range engines {
		m.engines[e.Name()] = e
	}
	return m
}

// Name implements Renderer.
func (m *Multi) Name() string { return "auto" }

// Engine returns the renderer that would handle source.
func (m *Multi) Engine(source string) (Renderer, error) {
	name := Detect(source)
	r, ok := m.engines[name]
	if !ok {
		return nil, fmt.Errorf("no %s renderer configured", name)
	}
	return r, nil
}

// Render implements Renderer.
func (m *Multi) Render(ctx context.Context, source string, opts Options) ([]byte, error) {
	r, err := m.Engine(source)
	if err != nil {
		return nil, err
	}
	return Instrumented(r).Render(ctx, source, opts)
}

type instrumented struct{ Renderer }

// Instrumented wraps r so that renders are reported to the render hooks.
func Instrumented(r Renderer) Renderer {
	if _, ok := r.(instrumented); ok {
		return r
	}
	return instrumented{r}
}

func (r instrumented) Render(ctx context.Context, source string, opts Options) ([]byte, error) {
	hooks := observability.Render()
	start := time.Now()
	hooks.OnRenderStart(ctx, r.Name())
	svg, err := r.Renderer.Render(ctx, source, opts)
	hooks.OnRenderComplete(ctx, r.Name(), time.Since(start), err)
	return svg, err
}
