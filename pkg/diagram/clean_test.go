package diagram

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"plain", "flowchart TD\nA-->B", "flowchart TD\nA-->B"},
		{"trim", "\n  flowchart TD\nA-->B  \n", "flowchart TD\nA-->B"},
		{"fence no tag", "```\nflowchart TD\nA-->B\n```", "flowchart TD\nA-->B"},
		{"fence mermaid tag", "```mermaid\nflowchart TD\nA-->B\n```", "flowchart TD\nA-->B"},
		{"fence tag trailing space", "```mermaid  \nflowchart LR\nA-->B\n```", "flowchart LR\nA-->B"},
		{"fence without closing", "```mermaid\nsequenceDiagram\nA->>B: hi", "sequenceDiagram\nA->>B: hi"},
		{"fence content on fence line", "```flowchart TD\nA-->B\n```", "flowchart TD\nA-->B"},
		{"known tag before content", "```mermaid graph TD\nA-->B```", "flowchart TD\nA-->B"},
		{"known tag is case insensitive", "```Mermaid\tsequenceDiagram\nA->>B: hi\n```", "sequenceDiagram\nA->>B: hi"},
		{"unknown word before content kept", "```pie showData\n\"a\": 1\n```", "pie showData\n\"a\": 1"},
		{"surrounded by whitespace", "  \n```mermaid\npie\n\"a\": 1\n```\n  ", "pie\n\"a\": 1"},
		{"nested fences", "```\n```mermaid\nflowchart TD\n```\n```", "flowchart TD"},
		{"graph rewrite", "graph TD\nA-->B", "flowchart TD\nA-->B"},
		{"graph rewrite in fence", "```mermaid\ngraph LR\nA-->B\n```", "flowchart LR\nA-->B"},
		{"graph only at start", "flowchart TD\nsubgraph graph one\nend", "flowchart TD\nsubgraph graph one\nend"},
		{"graph case sensitive", "Graph TD\nA-->B", "Graph TD\nA-->B"},
		{"graph needs space", "graphTD", "graphTD"},
		{"inner fence kept", "flowchart TD\nA[\"```\"]", "flowchart TD\nA[\"```\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"graph TD\nA-->B",
		"graph graph TD",
		"```mermaid\ngraph TD\nA-->B\n```",
		"```\n```\ngraph LR\n```\n```",
		"  ```json\n{\"kind\":\"diagram\"}\n```",
		"flowchart TD\n  A --> B\n  subgraph graph x\n  end",
		"```",
		"``````",
		"```mermaid graph TD\nA-->B```",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCleanOnlyFirstGraphToken(t *testing.T) {
	in := "graph TD\nA[graph ] --> B[graph ]"
	got := Clean(in)
	if !strings.HasPrefix(got, "flowchart TD") {
		t.Fatalf("Clean(%q) = %q, want flowchart prefix", in, got)
	}
	if n := strings.Count(got, "graph "); n != 2 {
		t.Errorf("Clean(%q) left %d occurrences of %q, want 2", in, n, "graph ")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"```json\n{\"kind\":\"message\"}\n```", `{"kind":"message"}`},
		{"graph TD", "graph TD"},
		{"```\n```", ""},
	}
	for _, tt := range tests {
		if got := StripFences(tt.input); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
