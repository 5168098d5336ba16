package render

import (
	"context"
	"testing"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

func TestSyntaxDiagnostic(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
		wantOK bool
	}{
		{
			name: "parse error with stack",
			stderr: "\nError: Parse error on line 2:\n...TD    A-->\n-----------^\nExpecting 'AMP', got 'EOF'\n" +
				"    at Parser.parseError (file:///mermaid.js:1:1)\n    at Parser.parse (file:///mermaid.js:2:2)\n",
			want:   "Parse error on line 2:\n...TD    A-->\n-----------^\nExpecting 'AMP', got 'EOF'",
			wantOK: true,
		},
		{
			name:   "unknown diagram",
			stderr: "UnknownDiagramError: No diagram type detected matching given configuration for text: foo\n    at detectType",
			want:   "UnknownDiagramError: No diagram type detected matching given configuration for text: foo",
			wantOK: true,
		},
		{
			name:   "lexical",
			stderr: "Error: Lexical error on line 1. Unrecognized text.\n",
			want:   "Lexical error on line 1. Unrecognized text.",
			wantOK: true,
		},
		{
			name:   "browser failure",
			stderr: "Error: Failed to launch the browser process!\n    at onClose",
			wantOK: false,
		},
		{name: "empty", stderr: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := syntaxDiagnostic(tt.stderr)
			if ok != tt.wantOK {
				t.Fatalf("syntaxDiagnostic() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("syntaxDiagnostic() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMermaidUnavailable(t *testing.T) {
	m := NewMermaid(MermaidConfig{Bin: "flowsketch-no-such-mmdc"})
	if m.Available() {
		t.Fatal("Available() = true for missing binary")
	}
	_, err := m.Render(context.Background(), "flowchart TD", Options{})
	if !errors.Is(err, errors.ErrCodeRendererUnavailable) {
		t.Errorf("Render() error = %v, want %s", err, errors.ErrCodeRendererUnavailable)
	}
}

func TestMermaidDefaults(t *testing.T) {
	m := NewMermaid(MermaidConfig{})
	if m.Name() != EngineMermaid {
		t.Errorf("Name() = %q", m.Name())
	}
	if m.cfg.Bin != "mmdc" {
		t.Errorf("default Bin = %q, want mmdc", m.cfg.Bin)
	}
}
