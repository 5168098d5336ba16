package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/config"
	"github.com/matzehuels/flowsketch/pkg/env"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// captureStdout redirects status output to a buffer for the test's duration.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

// runCLI executes the root command with isolated config and cache directories.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	return execCLI(t, stdin, args...)
}

// execCLI executes the root command in the current environment.
func execCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := captureStdout(t)

	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersCommands(t *testing.T) {
	root := New(io.Discard, log.InfoLevel).RootCommand()

	for _, name := range []string{"chat", "generate", "fix", "clean", "recolor", "colors", "render", "gallery", "serve", "cache", "config", "completion"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			if err != nil || cmd == root {
				t.Errorf("command %q not registered", name)
			}
		})
	}
}

func TestCleanCommand(t *testing.T) {
	out, err := runCLI(t, "```mermaid\ngraph TD\nA-->B\n```\n", "clean", "-")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if out != "flowchart TD\nA-->B\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRecolorCommand(t *testing.T) {
	out, err := runCLI(t, "flowchart TD\nA-->B\nstyle A fill:#f9f", "recolor", "-", "--line", "#333333", "-r", "#f9f=#ffc0cb")
	if err != nil {
		t.Fatalf("recolor: %v", err)
	}
	for _, want := range []string{`"lineColor":"#333333"`, "fill:#ffc0cb", "A-->B"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestRecolorCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"nothing to change", []string{"recolor", "-"}, errors.ErrCodeInvalidInput},
		{"invalid colour", []string{"recolor", "-", "--primary", "red"}, errors.ErrCodeInvalidColor},
		{"in place on stdin", []string{"recolor", "-", "-i", "--primary", "#fff"}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "flowchart TD", tt.args...)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestRecolorInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.mmd")
	if err := os.WriteFile(path, []byte("flowchart TD\nA-->B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "", "recolor", path, "-i", "--primary", "#ff0000"); err != nil {
		t.Fatalf("recolor: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "%%{init:") || !strings.Contains(string(data), "#ff0000") {
		t.Errorf("file = %q", data)
	}
}

func TestColorsCommandJSON(t *testing.T) {
	src := `%%{init: {"theme":"forest"}}%%` + "\nflowchart TD\nstyle A fill:#abcdef"
	out, err := runCLI(t, src, "colors", "-", "--json")
	if err != nil {
		t.Fatalf("colors: %v", err)
	}
	if !strings.Contains(out, `"theme": "forest"`) || !strings.Contains(out, "#abcdef") {
		t.Errorf("output = %q", out)
	}
}

func TestGalleryCommand(t *testing.T) {
	out, err := runCLI(t, "", "gallery", "pie")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	if !strings.HasPrefix(out, "pie") {
		t.Errorf("output = %q", out)
	}

	if _, err := runCLI(t, "", "gallery", "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown template: err = %v", err)
	}
}

func TestSetupRejectsInvalidFlags(t *testing.T) {
	_, err := runCLI(t, "", "--provider", "openai", "gallery")
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestApplyFlags(t *testing.T) {
	t.Setenv("FLOWSKETCH_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	tests := []struct {
		name  string
		flags globalFlags
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name:  "no flags",
			flags: globalFlags{},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Provider.Name != "gemini" || cfg.Provider.APIKey != "gem-key" {
					t.Errorf("provider = %+v", cfg.Provider)
				}
			},
		},
		{
			name:  "provider switch drops the old key",
			flags: globalFlags{provider: "anthropic"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Provider.APIKey != "sk-ant" {
					t.Errorf("api key = %q, want sk-ant", cfg.Provider.APIKey)
				}
			},
		},
		{
			name:  "model and locale",
			flags: globalFlags{model: "gemini-2.5-pro", locale: "fr"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Provider.Model != "gemini-2.5-pro" || cfg.UI.Locale != "fr" {
					t.Errorf("config = %+v", cfg)
				}
			},
		},
		{
			name:  "no cache",
			flags: globalFlags{noCache: true},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Cache.Backend != config.CacheNone {
					t.Errorf("backend = %q", cfg.Cache.Backend)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Provider.APIKey = "gem-key"
			c := &CLI{flags: tt.flags}
			c.applyFlags(&cfg)
			tt.check(t, cfg)
		})
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "flow.mmd")
	if err := os.WriteFile(file, []byte("\nflowchart TD\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		arg     string
		stdin   string
		want    string
		wantErr errors.Code
	}{
		{name: "file", arg: file, want: "flowchart TD"},
		{name: "stdin", arg: "-", stdin: "sequenceDiagram\n", want: "sequenceDiagram"},
		{name: "missing file", arg: filepath.Join(dir, "nope.mmd"), wantErr: errors.ErrCodeFileNotFound},
		{name: "empty stdin", arg: "-", stdin: "  \n", wantErr: errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.stdin))

			got, err := readSource(cmd, tt.arg)
			if tt.wantErr != "" {
				if errors.GetCode(err) != tt.wantErr {
					t.Errorf("err = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("readSource() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestWriteSource(t *testing.T) {
	out := captureStdout(t)

	if err := writeSource("", "flowchart TD"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "flowchart TD\n" {
		t.Errorf("stdout = %q", out)
	}

	path := filepath.Join(t.TempDir(), "nested", "flow.mmd")
	if err := writeSource(path, "flowchart TD"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "flowchart TD\n" {
		t.Errorf("file = %q, %v", data, err)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("written path not reported: %q", out)
	}
}

func TestRecolorOptsArgs(t *testing.T) {
	opts := recolorOpts{primary: "#fff", line: "#000", replace: []string{"#f9f=#ffc0cb"}}

	got := strings.Join(opts.args(), " ")
	if want := "primary=#fff line=#000 #f9f=#ffc0cb"; got != want {
		t.Errorf("args() = %q, want %q", got, want)
	}
	if len(recolorOpts{}.args()) != 0 {
		t.Error("empty opts produced args")
	}
}

func TestSaveArtifact(t *testing.T) {
	a := render.Artifact{Format: render.FormatPNG, Data: []byte("png"), Filename: "diagram-20250314-092653.png", MIMEType: "image/png"}

	t.Run("host default", func(t *testing.T) {
		host := env.NewMemory(env.ThemeLight)
		path, err := saveArtifact(host, a, "", 1)
		if err != nil || path != a.Filename {
			t.Fatalf("saveArtifact() = %q, %v", path, err)
		}
		if data, _ := host.ReadFile(a.Filename); string(data) != "png" {
			t.Errorf("saved = %q", data)
		}
	})

	t.Run("explicit path", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "flow.png")
		path, err := saveArtifact(env.NewMemory(env.ThemeLight), a, out, 1)
		if err != nil || path != out {
			t.Fatalf("saveArtifact() = %q, %v", path, err)
		}
	})

	t.Run("several formats share a base", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "flow.svg")
		path, err := saveArtifact(env.NewMemory(env.ThemeLight), a, out, 2)
		if err != nil || filepath.Base(path) != "flow.png" {
			t.Fatalf("saveArtifact() = %q, %v", path, err)
		}
	})
}
