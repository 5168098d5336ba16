package env

import (
	"sync"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// Memory is an in-memory environment.
type Memory struct {
	Theme Theme

	mu        sync.Mutex
	files     map[string][]byte
	mimeTypes map[string]string
	clipboard string
}

// NewMemory creates an empty in-memory environment with the given theme.
func NewMemory(theme Theme) *Memory {
	return &Memory{
		Theme:     theme,
		files:     make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

// CurrentTheme implements Environment.
func (m *Memory) CurrentTheme() Theme {
	if m.Theme == "" {
		return ThemeLight
	}
	return m.Theme
}

// SaveFile implements Environment.
func (m *Memory) SaveFile(data []byte, filename, mimeType string) (string, error) {
	if err := errors.ValidateFilename(filename); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename] = append([]byte(nil), data...)
	m.mimeTypes[filename] = mimeType
	return filename, nil
}

// ReadFile implements Environment.
func (m *Memory) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", name)
	}
	return data, nil
}

// CopyText implements Environment.
func (m *Memory) CopyText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clipboard = text
	return nil
}

// Clipboard returns the last copied text.
func (m *Memory) Clipboard() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clipboard
}

// MIMEType returns the MIME type a file was saved with.
func (m *Memory) MIMEType(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mimeTypes[name]
}

var _ Environment = (*Memory)(nil)
