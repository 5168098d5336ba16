package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"flowchart", "flowchart TD\nA-->B", EngineMermaid},
		{"legacy graph", "graph TD\nA-->B", EngineMermaid},
		{"legacy graph one line", "graph TD;A{x}-->B", EngineMermaid},
		{"sequence", "sequenceDiagram\nA->>B: hi", EngineMermaid},
		{"directive", "%%{init: {\"theme\":\"dark\"}}%%\nflowchart LR", EngineMermaid},
		{"empty", "", EngineMermaid},
		{"digraph", "digraph G { a -> b }", EngineGraphviz},
		{"digraph anonymous", "digraph {\n a -> b\n}", EngineGraphviz},
		{"strict", "strict digraph deps {\n a -> b\n}", EngineGraphviz},
		{"undirected", "graph G {\n a -- b\n}", EngineGraphviz},
		{"quoted id", "digraph \"my graph\" { a }", EngineGraphviz},
		{"leading comment", "// generated\ndigraph G { a }", EngineGraphviz},
		{"leading whitespace", "\n\n  digraph G { a }", EngineGraphviz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.source); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

type fakeRenderer struct {
	name  string
	calls int
	err   error
}

func (f *fakeRenderer) Name() string { return f.name }

func (f *fakeRenderer) Render(ctx context.Context, source string, opts Options) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<svg>" + f.name + "</svg>"), nil
}

func TestMultiDispatch(t *testing.T) {
	mermaid := &fakeRenderer{name: EngineMermaid}
	gv := &fakeRenderer{name: EngineGraphviz}
	m := NewMulti(mermaid, gv)
	ctx := context.Background()

	svg, err := m.Render(ctx, "flowchart TD\nA-->B", Options{})
	if err != nil || string(svg) != "<svg>mermaid</svg>" {
		t.Errorf("Render(mermaid) = %q, %v", svg, err)
	}
	svg, err = m.Render(ctx, "digraph { a -> b }", Options{})
	if err != nil || string(svg) != "<svg>graphviz</svg>" {
		t.Errorf("Render(dot) = %q, %v", svg, err)
	}
	if mermaid.calls != 1 || gv.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", mermaid.calls, gv.calls)
	}
}

func TestMultiMissingEngine(t *testing.T) {
	m := NewMulti(&fakeRenderer{name: EngineMermaid})
	if _, err := m.Render(context.Background(), "digraph { a }", Options{}); err == nil {
		t.Error("Render() with no graphviz engine should fail")
	}
}

func TestMultiPassesSyntaxError(t *testing.T) {
	synErr := &SyntaxError{Engine: EngineMermaid, Diagnostic: "Parse error on line 2"}
	m := NewMulti(&fakeRenderer{name: EngineMermaid, err: synErr})

	_, err := m.Render(context.Background(), "flowchart TD\nA-->", Options{})

	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("Render() error = %v, want *SyntaxError", err)
	}
	if se.Diagnostic != "Parse error on line 2" {
		t.Errorf("Diagnostic = %q", se.Diagnostic)
	}
	if !strings.Contains(err.Error(), "mermaid syntax error") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAsSyntaxError(t *testing.T) {
	wrapped := fmt.Errorf("render: %w", &SyntaxError{Engine: EngineGraphviz, Diagnostic: "syntax error in line 1"})
	if se, ok := AsSyntaxError(wrapped); !ok || se.Engine != EngineGraphviz {
		t.Errorf("AsSyntaxError(wrapped) = %v, %v", se, ok)
	}
	if _, ok := AsSyntaxError(errors.New("boom")); ok {
		t.Error("AsSyntaxError(plain error) = true, want false")
	}
	if _, ok := AsSyntaxError(nil); ok {
		t.Error("AsSyntaxError(nil) = true, want false")
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	if o.Theme != DefaultTheme || o.Background != DefaultBackground {
		t.Errorf("WithDefaults() = %+v", o)
	}
	o = Options{Theme: "dark", Background: "transparent"}.WithDefaults()
	if o.Theme != "dark" || o.Background != "transparent" {
		t.Errorf("WithDefaults() overwrote fields: %+v", o)
	}
}
