// Package env abstracts the host the assistant runs in: the colour scheme of
// the terminal or browser, where exports are saved, how files are read and
// the clipboard.
//
// The shell and the HTTP server depend on [Environment] rather than on the
// operating system directly, so they can be exercised with [Memory] in tests.
package env

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// Theme is the host colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// RenderTheme returns the Mermaid theme that suits t.
func (t Theme) RenderTheme() string {
	if t == ThemeDark {
		return "dark"
	}
	return "default"
}

// ThemeAuto is the theme setting that asks the host.
const ThemeAuto = "auto"

// ThemeSettings lists the accepted theme settings.
var ThemeSettings = []string{ThemeAuto, string(ThemeLight), string(ThemeDark)}

// ValidateThemeSetting checks a theme setting from configuration.
func ValidateThemeSetting(s string) error {
	switch s {
	case ThemeAuto, string(ThemeLight), string(ThemeDark):
		return nil
	}
	return errors.New(errors.ErrCodeInvalidConfig, "invalid theme %q (expected auto, light or dark)", s)
}

// Environment is the host the assistant runs in.
type Environment interface {
	CurrentTheme() Theme

	// SaveFile stores an export and returns where it was written.
	SaveFile(data []byte, filename, mimeType string) (string, error)

	ReadFile(name string) ([]byte, error)
	CopyText(text string) error
}

// Local is the environment of a terminal session.
type Local struct {
	// OutputDir receives saved files. Empty means the working directory.
	OutputDir string

	// Theme is auto, light or dark. auto asks the terminal.
	Theme string

	hasDarkBackground func() bool
	writeClipboard    func(string) error
}

// NewLocal creates a local environment.
func NewLocal(outputDir, theme string) *Local {
	return &Local{
		OutputDir:         outputDir,
		Theme:             theme,
		hasDarkBackground: lipgloss.HasDarkBackground,
		writeClipboard:    clipboard.WriteAll,
	}
}

// CurrentTheme implements Environment.
func (l *Local) CurrentTheme() Theme {
	switch l.Theme {
	case string(ThemeDark):
		return ThemeDark
	case string(ThemeLight):
		return ThemeLight
	}
	dark := lipgloss.HasDarkBackground
	if l.hasDarkBackground != nil {
		dark = l.hasDarkBackground
	}
	if dark() {
		return ThemeDark
	}
	return ThemeLight
}

// SaveFile implements Environment. The MIME type is not needed on disk.
func (l *Local) SaveFile(data []byte, filename, _ string) (string, error) {
	if err := errors.ValidateFilename(filename); err != nil {
		return "", err
	}
	dir := l.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create output directory")
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return path, nil
}

// ReadFile implements Environment. "~/" is expanded to the home directory.
func (l *Local) ReadFile(name string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(name, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			name = filepath.Join(home, rest)
		}
	}
	data, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", name)
	}
	return data, nil
}

// CopyText implements Environment.
func (l *Local) CopyText(text string) error {
	write := clipboard.WriteAll
	if l.writeClipboard != nil {
		write = l.writeClipboard
	}
	if clipboard.Unsupported {
		return errors.New(errors.ErrCodeUnsupported, "clipboard is not available on this system")
	}
	if err := write(text); err != nil {
		return errors.Wrap(errors.ErrCodeUnsupported, err, "copy to clipboard")
	}
	return nil
}

var _ Environment = (*Local)(nil)
