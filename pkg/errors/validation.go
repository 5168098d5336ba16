package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// hexColorRegex matches #rgb, #rgba, #rrggbb and #rrggbbaa colour literals.
var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidateColor validates a colour value supplied for a theme variable or a
// literal replacement. Only hex notation is accepted, which is what the
// renderer's base theme understands for every variable.
func ValidateColor(value string) error {
	if value == "" {
		return New(ErrCodeInvalidColor, "colour cannot be empty")
	}
	if !hexColorRegex.MatchString(value) {
		return New(ErrCodeInvalidColor, "invalid colour %q (expected #rgb or #rrggbb)", value)
	}
	return nil
}

// ValidateFilename validates an attachment or export filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidInput, "filename cannot be empty")
	}

	if len(filename) > 255 {
		return New(ErrCodeInvalidInput, "filename too long (max 255 characters)")
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "filename contains invalid control characters")
		}
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidInput, "filename cannot contain path separators")
	}

	if filename == "." || filename == ".." {
		return New(ErrCodeInvalidInput, "filename cannot be a directory reference")
	}

	return nil
}

// ValidateSource validates diagram source text before it is handed to a
// renderer. Content is not checked; only the size and the absence of NUL bytes,
// which no renderer accepts.
func ValidateSource(source string, maxBytes int) error {
	if strings.TrimSpace(source) == "" {
		return New(ErrCodeInvalidInput, "diagram source cannot be empty")
	}
	if maxBytes > 0 && len(source) > maxBytes {
		return New(ErrCodeRequestTooLong, "diagram source too large (max %d bytes)", maxBytes)
	}
	if strings.ContainsRune(source, '\x00') {
		return New(ErrCodeInvalidInput, "diagram source contains NUL bytes")
	}
	return nil
}
