package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// Theme variables exposed by the recolour editor.
const (
	VarPrimaryColor     = "primaryColor"     // node fill
	VarPrimaryTextColor = "primaryTextColor" // node text
	VarLineColor        = "lineColor"        // edges and arrows
)

// KnownVariables lists the theme variables a [Recolor] may set, in display order.
var KnownVariables = []string{VarPrimaryColor, VarPrimaryTextColor, VarLineColor}

const (
	keyTheme          = "theme"
	keyThemeVariables = "themeVariables"
	defaultTheme      = "base"
)

// Directive is the decoded payload of an init directive. Unknown keys are kept
// so that rewriting a block does not drop renderer settings it did not touch.
type Directive map[string]any

// DefaultDirective returns the directive used when the source has none or
// when the existing one cannot be decoded.
func DefaultDirective() Directive {
	return Directive{
		keyTheme:          defaultTheme,
		keyThemeVariables: map[string]any{},
	}
}

// Theme returns the theme name, or "" if unset or not a string.
func (d Directive) Theme() string {
	s, _ := d[keyTheme].(string)
	return s
}

// Variables returns the themeVariables object, or nil if it is missing or
// not an object.
func (d Directive) Variables() map[string]any {
	vars, _ := d[keyThemeVariables].(map[string]any)
	return vars
}

// Variable returns the string value of a theme variable, or "".
func (d Directive) Variable(key string) string {
	s, _ := d.Variables()[key].(string)
	return s
}

// Block serializes the directive as a one-line init block.
func (d Directive) Block() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(d)); err != nil {
		// Only reachable for values encoding/json cannot represent, which a
		// decoded payload plus string overrides never contains.
		return fmt.Sprintf("%sinit: {}%s", directiveOpen, directiveClose)
	}
	return directiveOpen + directiveKeyword + ": " + strings.TrimSpace(buf.String()) + directiveClose
}

// parseDirective decodes a payload captured by the scanner.
func parseDirective(payload string) (Directive, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var d Directive
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("payload is not an object")
	}
	return d, nil
}

// ReadDirective returns the first init directive in source.
// ok is false when there is no block or its payload cannot be decoded.
func ReadDirective(source string) (d Directive, ok bool) {
	sp, found := findDirective(source)
	if !found {
		return nil, false
	}
	d, err := parseDirective(sp.payload(source))
	if err != nil {
		return nil, false
	}
	return d, true
}

// GetDirectiveValue returns themeVariables[key] from the source's init
// directive, or "" when the block, the key or a string value is absent.
func GetDirectiveValue(source, key string) string {
	d, ok := ReadDirective(source)
	if !ok {
		return ""
	}
	return d.Variable(key)
}

// GetTheme returns the theme named in the source's init directive, or "".
func GetTheme(source string) string {
	d, ok := ReadDirective(source)
	if !ok {
		return ""
	}
	return d.Theme()
}

// Patcher rewrites init directives. The zero value is usable and logs through
// log.Default().
type Patcher struct {
	// Logger receives the diagnostic emitted when a directive payload cannot
	// be decoded.
	Logger *log.Logger

	// SpliceMalformed replaces only the span of an undecodable directive and
	// keeps the text around it. When false, the whole source is kept after the
	// new block, malformed directive included.
	SpliceMalformed bool
}

// NewPatcher creates a Patcher logging to logger.
func NewPatcher(logger *log.Logger) *Patcher {
	return &Patcher{Logger: logger}
}

func (p *Patcher) logger() *log.Logger {
	if p == nil || p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}

// ApplyOverrides merges vars into the init directive's themeVariables,
// rewrites the block at the front of the diagram, and then replaces every
// literal occurrence of each key of literals with its value across the whole
// result, directive included.
//
// ApplyOverrides never fails: a missing directive is created from
// [DefaultDirective], and an undecodable one is logged and replaced by it.
func (p *Patcher) ApplyOverrides(source string, vars, literals map[string]string) string {
	d := DefaultDirective()
	prefix, suffix := "", source

	if sp, found := findDirective(source); found {
		parsed, err := parseDirective(sp.payload(source))
		switch {
		case err != nil:
			p.logger().Warn("discarding unparseable init directive",
				"err", err,
				"payload", truncate(sp.payload(source), 80))
			if p != nil && p.SpliceMalformed {
				prefix, suffix = source[:sp.start], source[sp.end:]
			}
		default:
			for k, v := range parsed {
				d[k] = v
			}
			prefix, suffix = source[:sp.start], source[sp.end:]
		}
	} else if strings.Contains(source, directiveOpen) {
		p.logger().Debug("no well-formed init directive found; inserting a new one")
	}

	themeVars := d.Variables()
	if themeVars == nil {
		if v, present := d[keyThemeVariables]; present && v != nil {
			p.logger().Warn("themeVariables is not an object; resetting", "value", v)
		}
		themeVars = map[string]any{}
		d[keyThemeVariables] = themeVars
	}
	for k, v := range vars {
		themeVars[k] = v
	}

	out := prefix + d.Block() + "\n" + strings.TrimSpace(suffix)
	return ReplaceLiterals(out, literals)
}

// Apply is ApplyOverrides for a [Recolor].
func (p *Patcher) Apply(source string, r Recolor) string {
	return p.ApplyOverrides(source, r.Vars, r.Literals)
}

// ApplyOverrides is [Patcher.ApplyOverrides] with the default logger.
func ApplyOverrides(source string, vars, literals map[string]string) string {
	return (*Patcher)(nil).ApplyOverrides(source, vars, literals)
}

// ReplaceLiterals replaces every exact occurrence of each key of literals with
// its value in a single pass, so replacements never chain. When keys overlap
// at the same position the longer key wins. Empty keys are ignored.
func ReplaceLiterals(text string, literals map[string]string) string {
	if len(literals) == 0 {
		return text
	}
	keys := make([]string, 0, len(literals))
	for k := range literals {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return text
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, literals[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
