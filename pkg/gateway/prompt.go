package gateway

import (
	"fmt"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/llm"
)

// Category is a diagram type the assistant can be steered towards.
type Category struct {
	ID          string
	Keyword     string
	Description string
}

// Categories is the diagram catalogue offered to the model and the user.
var Categories = []Category{
	{"flowchart", "flowchart", "processes, decisions and workflows"},
	{"sequence", "sequenceDiagram", "interactions between participants over time"},
	{"class", "classDiagram", "classes, attributes and relationships"},
	{"state", "stateDiagram-v2", "states and transitions"},
	{"er", "erDiagram", "entities and their relationships"},
	{"gantt", "gantt", "project schedules"},
	{"pie", "pie", "proportions"},
	{"mindmap", "mindmap", "hierarchical ideas"},
	{"timeline", "timeline", "events in chronological order"},
	{"journey", "journey", "user journeys with satisfaction scores"},
}

// LookupCategory finds a category by ID, case-insensitively.
func LookupCategory(id string) (Category, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryIDs returns the IDs of all categories.
func CategoryIDs() []string {
	ids := make([]string, len(Categories))
	for i, c := range Categories {
		ids[i] = c.ID
	}
	return ids
}

func validateCategory(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := LookupCategory(id); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown category %q (expected one of %s)", id, strings.Join(CategoryIDs(), ", "))
	}
	return nil
}

const basePrompt = `You are a diagramming assistant. You turn descriptions, sketches and documents into Mermaid diagrams.

Decide for every user message whether to answer with a diagram or with a message:
- kind "diagram": content is complete Mermaid source, without code fences or commentary.
- kind "message": content is a short plain-text reply, used for questions, clarifications, or when no diagram can be derived.

Rules for diagrams:
- Use "flowchart" rather than the legacy "graph" keyword.
- Quote node labels that contain punctuation, e.g. A["Step (1)"].
- Keep any existing %%{init: ...}%% directive unless the user asks to change colours or theme.
- When the user refers to "the diagram", change the current diagram instead of starting over.
- When an image or PDF is attached, reproduce its structure faithfully.`

// replySchema is the structured reply every provider is asked for.
var replySchema = &llm.Schema{
	Properties: []llm.Property{
		{Name: "kind", Description: "diagram or message", Enum: []string{string(KindDiagram), string(KindMessage)}},
		{Name: "content", Description: "Mermaid source for a diagram, plain text for a message"},
	},
}

// systemPrompt builds the system instruction with the category catalogue and
// the request's context hints.
func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	b.WriteString("\n\nSupported diagram types:")
	for _, c := range Categories {
		fmt.Fprintf(&b, "\n- %s (%s): %s", c.ID, c.Keyword, c.Description)
	}

	if c, ok := LookupCategory(req.Category); ok {
		fmt.Fprintf(&b, "\n\nThe user prefers %s diagrams (start the source with %q) unless they ask otherwise.", c.ID, c.Keyword)
	}
	if src := strings.TrimSpace(req.CurrentSource); src != "" {
		b.WriteString("\n\nCurrent diagram source:\n")
		b.WriteString(src)
	}
	return b.String()
}

const fixPrompt = `The following Mermaid diagram fails to render. Fix the syntax so that it renders, changing as little as possible and keeping every node, edge, label and the init directive. Reply with kind "diagram".

Renderer error:
%s

Source:
%s`

func fixRequest(source, diagnostic, locale string) Request {
	return Request{
		Turns:  []Turn{{Role: RoleUser, Text: fmt.Sprintf(fixPrompt, strings.TrimSpace(diagnostic), source)}},
		Locale: locale,
	}
}
