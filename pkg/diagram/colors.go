package diagram

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// colorToken matches hex colour literals. The trailing check is done by hand
// because RE2 has no lookahead.
var colorToken = regexp.MustCompile(`#(?:[0-9a-fA-F]{8}|[0-9a-fA-F]{6}|[0-9a-fA-F]{3,4})`)

// FindColors returns the distinct hex colour literals in source, in order of
// first appearance. Entity references such as &#9829; and tokens that run into
// further word characters (#abcdefg) are ignored. Matching is case-sensitive,
// so #FFF and #fff are reported separately, as literal replacement is.
func FindColors(source string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, loc := range colorToken.FindAllStringIndex(source, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && source[start-1] == '&' {
			continue
		}
		if end < len(source) && isWordByte(source[end]) {
			continue
		}
		c := source[start:end]
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Recolor is a colour change request: theme variable overrides plus literal
// find/replace pairs.
type Recolor struct {
	Vars     map[string]string `json:"vars,omitempty"`
	Literals map[string]string `json:"literals,omitempty"`
}

// Empty reports whether r changes nothing.
func (r Recolor) Empty() bool {
	return len(r.Vars) == 0 && len(r.Literals) == 0
}

// Validate checks variable names against [KnownVariables] and that every
// value, and every literal being replaced, is a hex colour.
func (r Recolor) Validate() error {
	for k, v := range r.Vars {
		if !slices.Contains(KnownVariables, k) {
			return errors.New(errors.ErrCodeInvalidInput,
				"unknown theme variable %q (expected one of %s)", k, strings.Join(KnownVariables, ", "))
		}
		if err := errors.ValidateColor(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidColor, err, "%s", k)
		}
	}
	for old, repl := range r.Literals {
		if err := errors.ValidateColor(old); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidColor, err, "replace %s", old)
		}
		if err := errors.ValidateColor(repl); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidColor, err, "replace %s with %s", old, repl)
		}
	}
	return nil
}

// ParseReplacement parses an "old=new" or "old=>new" literal pair.
func ParseReplacement(s string) (old, repl string, err error) {
	for _, sep := range []string{"=>", "="} {
		if a, b, ok := strings.Cut(s, sep); ok {
			old, repl = strings.TrimSpace(a), strings.TrimSpace(b)
			if old == "" || repl == "" {
				break
			}
			return old, repl, nil
		}
	}
	return "", "", errors.New(errors.ErrCodeInvalidFormat, "invalid replacement %q (expected old=new)", s)
}

// Palette is the current colour state of a diagram: its theme, the values of
// the known variables and the literal colours used in the body.
type Palette struct {
	Theme     string            `json:"theme"`
	Variables map[string]string `json:"variables"`
	Literals  []string          `json:"literals"`
}

// ReadPalette collects the values a colour editor starts from.
func ReadPalette(source string) Palette {
	p := Palette{
		Theme:     GetTheme(source),
		Variables: make(map[string]string, len(KnownVariables)),
		Literals:  FindColors(source),
	}
	for _, k := range KnownVariables {
		if v := GetDirectiveValue(source, k); v != "" {
			p.Variables[k] = v
		}
	}
	return p
}

// String renders the palette for terminal output.
func (p Palette) String() string {
	var b strings.Builder
	theme := p.Theme
	if theme == "" {
		theme = "(none)"
	}
	fmt.Fprintf(&b, "theme: %s\n", theme)
	for _, k := range KnownVariables {
		v := p.Variables[k]
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	if len(p.Literals) > 0 {
		fmt.Fprintf(&b, "literals: %s\n", strings.Join(p.Literals, " "))
	}
	return b.String()
}

// variableAliases are the short names accepted by [ParseRecolorArgs].
var variableAliases = map[string]string{
	"primary": VarPrimaryColor,
	"fill":    VarPrimaryColor,
	"text":    VarPrimaryTextColor,
	"line":    VarLineColor,
}

// ResolveVariable maps a short alias (primary, fill, text, line) or a full
// theme variable name to the variable name. Unknown names are returned as is.
func ResolveVariable(name string) string {
	if v, ok := variableAliases[strings.ToLower(name)]; ok {
		return v
	}
	return name
}

// ParseRecolorArgs parses "name=#hex" variable overrides and "#old=#new" (or
// "#old=>#new") literal replacements into a validated Recolor.
func ParseRecolorArgs(args []string) (Recolor, error) {
	r := Recolor{Vars: map[string]string{}, Literals: map[string]string{}}
	for _, arg := range args {
		left, right, err := ParseReplacement(arg)
		if err != nil {
			return Recolor{}, err
		}
		if strings.HasPrefix(left, "#") {
			r.Literals[left] = right
		} else {
			r.Vars[ResolveVariable(left)] = right
		}
	}
	if err := r.Validate(); err != nil {
		return Recolor{}, err
	}
	return r, nil
}
