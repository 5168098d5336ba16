package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/env"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/gallery"
	"github.com/matzehuels/flowsketch/pkg/gateway"
	"github.com/matzehuels/flowsketch/pkg/pipeline"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// entryKind styles a transcript entry.
type entryKind int

const (
	entryUser entryKind = iota
	entryReply
	entryDiagram
	entryInfo
	entrySuccess
	entryWarning
	entryError
)

// entry is one block of the chat transcript.
type entry struct {
	kind entryKind
	text string
}

// outcome is what a single input produced.
type outcome struct {
	entries []entry
	quit    bool
}

func (o *outcome) add(kind entryKind, format string, args ...any) {
	o.entries = append(o.entries, entry{kind: kind, text: fmt.Sprintf(format, args...)})
}

// Session is the state behind the chat shell: the conversation, the current
// diagram and the pending attachment. It is not safe for concurrent use; the
// shell runs one input at a time.
type Session struct {
	Gateway *gateway.Gateway
	Runner  *pipeline.Runner
	Env     env.Environment
	Patcher *diagram.Patcher
	Options pipeline.Options
	Locale  string

	// Category steers the model towards a diagram type. Empty lets it choose.
	Category string

	Turns  []gateway.Turn
	Source string

	pending    *gateway.Attachment
	diagnostic string
}

// Handle processes one line of input: a slash command or a chat message.
func (s *Session) Handle(ctx context.Context, input string) outcome {
	var out outcome
	input = strings.TrimSpace(input)
	if input == "" {
		return out
	}
	if strings.HasPrefix(input, "/") {
		s.command(ctx, input, &out)
		return out
	}
	s.chat(ctx, input, &out)
	return out
}

// Busy returns the status line shown while input is being handled.
func (s *Session) Busy(input string) string {
	switch name, _, _ := strings.Cut(strings.TrimSpace(input), " "); name {
	case "/export":
		return "exporting…"
	case "/render", "/edit", "/recolor", "/gallery":
		return "rendering…"
	case "/fix":
		return "asking for a fix…"
	}
	return "thinking…"
}

func (s *Session) chat(ctx context.Context, text string, out *outcome) {
	turn := gateway.Turn{Role: gateway.RoleUser, Text: text, Attachment: s.pending}
	s.Turns = append(s.Turns, turn)

	res := s.Gateway.Generate(ctx, gateway.Request{
		Turns:         s.Turns,
		CurrentSource: s.Source,
		Category:      s.Category,
		Locale:        s.Locale,
	})
	if !res.OK() {
		// Drop the failed turn so roles keep alternating; the attachment stays
		// pending for the retry.
		s.Turns = s.Turns[:len(s.Turns)-1]
		out.add(entryError, "%s", res.Content)
		return
	}

	s.pending = nil
	s.Turns = append(s.Turns, gateway.Turn{Role: gateway.RoleModel, Text: res.Content})
	if !res.IsDiagram() {
		out.add(entryReply, "%s", res.Content)
		return
	}
	s.setSource(ctx, res.Content, out)
}

// setSource replaces the current diagram and test-renders it.
func (s *Session) setSource(ctx context.Context, source string, out *outcome) {
	s.Source = source
	s.diagnostic = ""
	out.add(entryDiagram, "%s", source)
	s.check(ctx, out)
}

// check renders the current diagram and records a syntax error for /fix.
func (s *Session) check(ctx context.Context, out *outcome) bool {
	_, hit, err := s.Runner.RenderWithCacheInfo(ctx, s.Source, s.Options)
	if err != nil {
		if syn, ok := render.AsSyntaxError(err); ok {
			s.diagnostic = syn.Diagnostic
			out.add(entryWarning, "%s\n/fix asks the model to repair it", err)
			return false
		}
		out.add(entryWarning, "could not render: %s", errors.UserMessage(err))
		return false
	}
	s.diagnostic = ""
	status := iconFresh
	if hit {
		status = iconCached
	}
	out.add(entrySuccess, "renders (%s, %s)", render.Detect(s.Source), status)
	return true
}

func (s *Session) command(ctx context.Context, input string, out *outcome) {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch name {
	case "/quit", "/exit", "/q":
		out.quit = true

	case "/help", "/h":
		out.add(entryInfo, "%s", helpText)

	case "/attach":
		s.attach(rest, out)

	case "/category":
		s.category(args, out)

	case "/source":
		if s.requireSource(out) {
			out.add(entryDiagram, "%s", s.Source)
		}

	case "/edit":
		if rest == "" {
			out.add(entryError, "usage: /edit <file>")
			return
		}
		data, err := s.Env.ReadFile(rest)
		if err != nil {
			out.add(entryError, "%s", errors.UserMessage(err))
			return
		}
		s.setSource(ctx, strings.TrimSpace(string(data)), out)

	case "/recolor":
		s.recolor(ctx, args, out)

	case "/colors":
		if s.requireSource(out) {
			out.add(entryInfo, "%s", strings.TrimRight(diagram.ReadPalette(s.Source).String(), "\n"))
		}

	case "/render":
		if s.requireSource(out) {
			s.check(ctx, out)
		}

	case "/export":
		s.export(ctx, args, out)

	case "/fix":
		s.fix(ctx, out)

	case "/copy":
		if !s.requireSource(out) {
			return
		}
		if err := s.Env.CopyText(s.Source); err != nil {
			out.add(entryError, "%s", errors.UserMessage(err))
			return
		}
		out.add(entrySuccess, "copied diagram source")

	case "/gallery":
		s.gallery(ctx, args, out)

	case "/clear":
		s.Turns, s.Source, s.pending, s.diagnostic = nil, "", nil, ""
		out.add(entryInfo, "conversation cleared")

	default:
		out.add(entryError, "unknown command %s (try /help)", name)
	}
}

func (s *Session) requireSource(out *outcome) bool {
	if s.Source == "" {
		out.add(entryWarning, "no diagram yet: describe one or load a template with /gallery")
		return false
	}
	return true
}

func (s *Session) attach(name string, out *outcome) {
	if name == "" {
		out.add(entryError, "usage: /attach <file>")
		return
	}
	data, err := s.Env.ReadFile(name)
	if err != nil {
		out.add(entryError, "%s", errors.UserMessage(err))
		return
	}
	a := gateway.NewAttachment(name, data)
	if err := a.Validate(); err != nil {
		out.add(entryError, "%s", errors.UserMessage(err))
		return
	}
	s.pending = a
	out.add(entrySuccess, "attached %s (%s, %d bytes); it is sent with your next message", a.Filename, a.MIMEType, len(a.Data))
}

func (s *Session) category(args []string, out *outcome) {
	if len(args) == 0 {
		current := s.Category
		if current == "" {
			current = "any"
		}
		out.add(entryInfo, "category: %s\navailable: %s", current, strings.Join(gateway.CategoryIDs(), ", "))
		return
	}
	switch id := strings.ToLower(args[0]); id {
	case "any", "none", "auto":
		s.Category = ""
		out.add(entrySuccess, "the model picks the diagram type")
	default:
		c, ok := gateway.LookupCategory(id)
		if !ok {
			out.add(entryError, "unknown category %q (available: %s)", id, strings.Join(gateway.CategoryIDs(), ", "))
			return
		}
		s.Category = c.ID
		out.add(entrySuccess, "preferring %s: %s", c.Keyword, c.Description)
	}
}

func (s *Session) recolor(ctx context.Context, args []string, out *outcome) {
	if !s.requireSource(out) {
		return
	}
	if len(args) == 0 {
		out.add(entryError, "usage: /recolor primary=#hex text=#hex line=#hex #old=#new")
		return
	}
	r, err := diagram.ParseRecolorArgs(args)
	if err != nil {
		out.add(entryError, "%s", errors.UserMessage(err))
		return
	}
	s.setSource(ctx, s.Patcher.Apply(s.Source, r), out)
}

func (s *Session) export(ctx context.Context, args []string, out *outcome) {
	if !s.requireSource(out) {
		return
	}
	formats, err := render.ParseFormats(strings.Join(args, ","))
	if err != nil {
		out.add(entryError, "%s", errors.UserMessage(err))
		return
	}
	opts := s.Options
	opts.Formats = formats
	res, err := s.Runner.Execute(ctx, s.Source, opts)
	if err != nil {
		if syn, ok := render.AsSyntaxError(err); ok {
			s.diagnostic = syn.Diagnostic
		}
		out.add(entryError, "export failed: %s", errors.UserMessage(err))
		return
	}
	for _, a := range res.Artifacts {
		path, err := s.Env.SaveFile(a.Data, a.Filename, a.MIMEType)
		if err != nil {
			out.add(entryError, "save %s: %s", a.Filename, errors.UserMessage(err))
			continue
		}
		out.add(entrySuccess, "saved %s", path)
	}
}

func (s *Session) fix(ctx context.Context, out *outcome) {
	if !s.requireSource(out) {
		return
	}
	if s.diagnostic == "" {
		out.add(entryInfo, "the current diagram renders; nothing to fix")
		return
	}
	res := s.Gateway.Fix(ctx, s.Source, s.diagnostic, s.Locale)
	if !res.IsDiagram() {
		out.add(entryError, "%s", res.Content)
		return
	}
	s.setSource(ctx, res.Content, out)
}

func (s *Session) gallery(ctx context.Context, args []string, out *outcome) {
	if len(args) == 0 {
		var b strings.Builder
		for _, t := range gallery.List() {
			fmt.Fprintf(&b, "%-10s %s\n", t.ID, t.Title)
		}
		b.WriteString("load one with /gallery <id>")
		out.add(entryInfo, "%s", b.String())
		return
	}
	t, err := gallery.Get(args[0])
	if err != nil {
		out.add(entryError, "%s", errors.UserMessage(err))
		return
	}
	if c, ok := gateway.LookupCategory(t.Category); ok {
		s.Category = c.ID
	}
	s.setSource(ctx, t.Source, out)
}

const helpText = `Type a description to get a diagram, or ask for changes to the current one.

  /attach <file>          send an image or PDF with the next message
  /category [name|any]    prefer a diagram type
  /source                 show the current diagram source
  /edit <file>            load diagram source from a file
  /recolor k=#hex ...     set primary, text or line colour; #old=#new replaces a literal
  /colors                 show the current colours
  /render                 check that the diagram renders
  /fix                    ask the model to repair a diagram that does not render
  /export [svg,png,pdf]   save the rendered diagram
  /copy                   copy the source to the clipboard
  /gallery [id]           list or load a starter diagram
  /clear                  start over
  /quit                   exit

Esc cancels a running request.`
