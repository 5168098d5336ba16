package diagram

import "strings"

const (
	codeFence     = "```"
	legacyKeyword = "graph "
	modernKeyword = "flowchart "
)

// Clean normalizes diagram source returned by a language model.
//
// Surrounding whitespace and markdown code fences (with an optional language
// tag such as ```mermaid) are removed, then a leading "graph " keyword is
// rewritten to "flowchart ". Only position 0 is rewritten; other occurrences
// of "graph " are left alone. Clean is idempotent.
func Clean(raw string) string {
	s := StripFences(raw)
	if strings.HasPrefix(s, legacyKeyword) {
		s = modernKeyword + s[len(legacyKeyword):]
	}
	return s
}

// StripFences trims whitespace and removes an enclosing code fence, repeating
// until the text no longer starts with one.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, codeFence) {
		s = stripOpeningFence(s[len(codeFence):])
		s = strings.TrimSuffix(s, codeFence)
		s = strings.TrimSpace(s)
	}
	return s
}

// stripOpeningFence removes the language tag and newline that may follow an
// opening fence. rest is the text after the three backticks.
func stripOpeningFence(rest string) string {
	line, after, found := strings.Cut(rest, "\n")
	tag := strings.TrimRight(line, " \t\r")
	if !isLanguageTag(tag) {
		// Content starts on the fence line itself, e.g. ```flowchart TD, possibly
		// after a known tag: ```mermaid flowchart TD
		return dropKnownTag(rest)
	}
	if !found {
		return ""
	}
	return after
}

// knownTags are fence tags dropped even when content follows on the same line.
var knownTags = []string{"mermaid", "mmd", "dot", "graphviz", "json"}

// dropKnownTag removes a leading known tag that is followed by blanks.
func dropKnownTag(s string) string {
	for _, tag := range knownTags {
		if len(s) > len(tag) && strings.EqualFold(s[:len(tag)], tag) && (s[len(tag)] == ' ' || s[len(tag)] == '\t') {
			return strings.TrimLeft(s[len(tag):], " \t")
		}
	}
	return s
}

// isLanguageTag reports whether s looks like a fence info string: empty, or a
// single token of letters, digits and a few punctuation characters.
func isLanguageTag(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '+', r == '.':
		default:
			return false
		}
	}
	return true
}
