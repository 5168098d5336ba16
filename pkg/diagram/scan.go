package diagram

import "strings"

const (
	directiveOpen    = "%%{"
	directiveClose   = "}%%"
	directiveKeyword = "init"
)

// span locates a directive block inside diagram source. start and end bound
// the whole block (markers included); payloadStart and payloadEnd bound the
// JSON object.
type span struct {
	start, end               int
	payloadStart, payloadEnd int
}

func (sp span) payload(source string) string {
	return source[sp.payloadStart:sp.payloadEnd]
}

// findDirective returns the first well-formed init directive in source.
// Candidates that do not match the marker grammar are skipped.
func findDirective(source string) (span, bool) {
	for off := 0; off < len(source); {
		i := strings.Index(source[off:], directiveOpen)
		if i < 0 {
			return span{}, false
		}
		start := off + i
		if sp, ok := matchDirective(source, start); ok {
			return sp, true
		}
		off = start + len(directiveOpen)
	}
	return span{}, false
}

// matchDirective matches `%%{ init : {...} }%%` at start. The keyword may be
// quoted, as the renderer accepts both forms.
func matchDirective(s string, start int) (span, bool) {
	pos := skipSpace(s, start+len(directiveOpen))

	quote := byte(0)
	if pos < len(s) && (s[pos] == '"' || s[pos] == '\'') {
		quote = s[pos]
		pos++
	}
	if !strings.HasPrefix(s[pos:], directiveKeyword) {
		return span{}, false
	}
	pos += len(directiveKeyword)
	if quote != 0 {
		if pos >= len(s) || s[pos] != quote {
			return span{}, false
		}
		pos++
	}

	pos = skipSpace(s, pos)
	if pos >= len(s) || s[pos] != ':' {
		return span{}, false
	}
	pos = skipSpace(s, pos+1)
	if pos >= len(s) || s[pos] != '{' {
		return span{}, false
	}

	end, ok := balancedObject(s, pos)
	if !ok {
		return span{}, false
	}
	tail := skipSpace(s, end)
	if !strings.HasPrefix(s[tail:], directiveClose) {
		return span{}, false
	}
	return span{
		start:        start,
		end:          tail + len(directiveClose),
		payloadStart: pos,
		payloadEnd:   end,
	}, true
}

// balancedObject returns the index just past the brace that closes the object
// opening at s[pos]. Braces inside double-quoted strings are ignored.
func balancedObject(s string, pos int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := pos; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func skipSpace(s string, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}
