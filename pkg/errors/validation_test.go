package errors

import (
	"strings"
	"testing"
)

func TestValidateColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"short", "#fff", false},
		{"short alpha", "#fffa", false},
		{"long", "#1a2B3c", false},
		{"long alpha", "#1a2b3c80", false},

		{"empty", "", true},
		{"no hash", "ffffff", true},
		{"named", "red", true},
		{"five digits", "#12345", true},
		{"bad digit", "#12345g", true},
		{"rgb func", "rgb(1,2,3)", true},
		{"trailing space", "#ffffff ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidColor) {
				t.Errorf("ValidateColor(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "sketch.png", false},
		{"valid spaces", "my sketch.pdf", false},
		{"valid hidden", ".diagram.mmd", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"path", "dir/sketch.png", true},
		{"windows path", "dir\\sketch.png", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"control char", "a\x01b.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		wantErr Code
	}{
		{"valid", "flowchart TD\nA-->B", 0, ""},
		{"within limit", "flowchart TD", 100, ""},
		{"empty", "", 0, ErrCodeInvalidInput},
		{"whitespace", "  \n\t", 0, ErrCodeInvalidInput},
		{"too large", strings.Repeat("x", 11), 10, ErrCodeRequestTooLong},
		{"nul byte", "flowchart\x00", 0, ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(tt.input, tt.max)
			if got := GetCode(err); got != tt.wantErr {
				t.Errorf("ValidateSource(%q) code = %q, want %q", tt.input, got, tt.wantErr)
			}
		})
	}
}
