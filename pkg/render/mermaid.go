package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

const mmdcBin = "mmdc"

// MermaidConfig configures the mermaid-cli renderer.
type MermaidConfig struct {
	// Bin is the mmdc executable. Defaults to "mmdc" on PATH.
	Bin string

	// WorkDir holds input and output files. Defaults to a fresh temporary
	// directory per render.
	WorkDir string

	// PuppeteerConfig is passed as -p, e.g. to disable the Chromium sandbox
	// inside containers.
	PuppeteerConfig string
}

// Mermaid renders Mermaid source with mermaid-cli.
type Mermaid struct {
	cfg MermaidConfig
}

// NewMermaid creates a mermaid-cli renderer.
func NewMermaid(cfg MermaidConfig) *Mermaid {
	if cfg.Bin == "" {
		cfg.Bin = mmdcBin
	}
	return &Mermaid{cfg: cfg}
}

// Name implements Renderer.
func (m *Mermaid) Name() string { return EngineMermaid }

// Available reports whether the mmdc binary can be found.
func (m *Mermaid) Available() bool {
	_, err := exec.LookPath(m.cfg.Bin)
	return err == nil
}

// Render implements Renderer.
func (m *Mermaid) Render(ctx context.Context, source string, opts Options) ([]byte, error) {
	if !m.Available() {
		return nil, errors.New(errors.ErrCodeRendererUnavailable,
			"mermaid rendering requires mermaid-cli. Install with:\n  npm install -g @mermaid-js/mermaid-cli")
	}
	opts = opts.WithDefaults()

	dir, cleanup, err := m.workDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	name := uuid.NewString()
	input := filepath.Join(dir, name+".mmd")
	output := filepath.Join(dir, name+".svg")
	if err := os.WriteFile(input, []byte(source), 0o600); err != nil {
		return nil, err
	}
	defer os.Remove(input)
	defer os.Remove(output)

	args := []string{
		"-i", input,
		"-o", output,
		"-t", opts.Theme,
		"-b", opts.Background,
		"-q",
	}
	if m.cfg.PuppeteerConfig != "" {
		args = append(args, "-p", m.cfg.PuppeteerConfig)
	}

	cmd := exec.CommandContext(ctx, m.cfg.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if diag, ok := syntaxDiagnostic(stderr.String()); ok {
			return nil, &SyntaxError{Engine: EngineMermaid, Diagnostic: diag}
		}
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "mmdc: %s", strings.TrimSpace(stderr.String()))
	}

	svg, err := os.ReadFile(output)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "read mmdc output")
	}
	return svg, nil
}

func (m *Mermaid) workDir() (string, func(), error) {
	if m.cfg.WorkDir != "" {
		if err := os.MkdirAll(m.cfg.WorkDir, 0o755); err != nil {
			return "", nil, err
		}
		return m.cfg.WorkDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "flowsketch-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// syntaxMarkers are the phrases mermaid prints when it rejects the source
// itself, as opposed to failing to launch its browser.
var syntaxMarkers = []string{
	"Parse error",
	"Lexical error",
	"Syntax error",
	"No diagram type detected",
	"UnknownDiagramError",
}

// syntaxDiagnostic extracts the parser message from mmdc stderr, dropping the
// Node.js stack trace that follows it.
func syntaxDiagnostic(stderr string) (string, bool) {
	lines := strings.Split(stderr, "\n")
	start := -1
	for i, line := range lines {
		for _, marker := range syntaxMarkers {
			if strings.Contains(line, marker) {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return "", false
	}

	var out []string
	for _, line := range lines[start:] {
		if strings.HasPrefix(strings.TrimSpace(line), "at ") {
			break
		}
		out = append(out, strings.TrimRight(line, " \r"))
	}
	diag := strings.TrimSpace(strings.Join(out, "\n"))
	diag = strings.TrimPrefix(diag, "Error: ")
	return diag, true
}

// String describes the renderer for logs.
func (m *Mermaid) String() string {
	return fmt.Sprintf("mermaid(%s)", m.cfg.Bin)
}
