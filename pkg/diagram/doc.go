// Package diagram provides pure text transforms over Mermaid diagram source.
//
// # Overview
//
// Diagram source is treated as an opaque string: this package never parses the
// diagram grammar itself (the renderer does that). It offers two transforms:
//
//   - [Clean] normalizes model output: it strips surrounding code fences and
//     rewrites a leading legacy "graph" keyword to "flowchart".
//   - [Patcher.ApplyOverrides] rewrites the embedded init directive
//     (%%{init: {...}}%%) with new theme variables and then performs a global
//     find/replace of literal colour values. This is how a diagram is recoloured
//     without asking the model to regenerate it.
//
// [GetDirectiveValue], [GetTheme] and [FindColors] are read-only accessors used
// to pre-populate colour editors.
//
// # Directive scanning
//
// The directive block is located with a two-phase scan: a brace-balanced
// scanner (aware of JSON string literals) captures the payload span, and the
// captured text is then handed to encoding/json. Payloads with nested objects
// such as {"flowchart": {"curve": "basis"}} are therefore captured whole.
// Only the first well-formed block is used.
//
// # Failure semantics
//
// Nothing in this package returns an error or panics on malformed input. An
// unparseable directive payload is logged as a warning and replaced by the
// default directive {"theme": "base", "themeVariables": {}}.
//
// # Concurrency
//
// All functions are pure and allocate only local values; a [Patcher] holds no
// mutable state and may be shared between goroutines.
package diagram
