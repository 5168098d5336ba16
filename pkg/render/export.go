package render

import (
	"strings"
	"time"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// Format is an export format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// Formats lists every export format.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (expected svg, png or pdf)", s)
}

// ParseFormats parses a comma-separated list, dropping duplicates.
// An empty string yields svg.
func ParseFormats(s string) ([]Format, error) {
	if strings.TrimSpace(s) == "" {
		return []Format{FormatSVG}, nil
	}
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// MIMEType returns the media type of f.
func (f Format) MIMEType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Binary reports whether f should not be written to a terminal.
func (f Format) Binary() bool {
	return f != FormatSVG
}

// Artifact is a rendered export ready to be saved.
type Artifact struct {
	Format   Format `json:"format"`
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// NewArtifact wraps data with its MIME type and a filename stamped with t.
func NewArtifact(f Format, data []byte, t time.Time) Artifact {
	return Artifact{
		Format:   f,
		Data:     data,
		MIMEType: f.MIMEType(),
		Filename: Filename(f, t),
	}
}

// Filename returns "diagram-YYYYMMDD-HHMMSS.<ext>" for t.
func Filename(f Format, t time.Time) string {
	return "diagram-" + t.Format("20060102-150405") + "." + string(f)
}
