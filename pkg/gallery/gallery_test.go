package gallery

import (
	"strings"
	"testing"

	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/gateway"
)

func TestList(t *testing.T) {
	list := List()
	if len(list) != len(gateway.Categories) {
		t.Fatalf("List() has %d templates, want one per category (%d)", len(list), len(gateway.Categories))
	}
	for _, tpl := range list {
		c, ok := gateway.LookupCategory(tpl.Category)
		if !ok {
			t.Errorf("%s: unknown category %q", tpl.ID, tpl.Category)
			continue
		}
		if !strings.HasPrefix(tpl.Source, c.Keyword) {
			t.Errorf("%s: source should start with %q, got %q", tpl.ID, c.Keyword, firstLine(tpl.Source))
		}
		if tpl.Title == "" {
			t.Errorf("%s: empty title", tpl.ID)
		}
		if got := diagram.Clean(tpl.Source); got != tpl.Source {
			t.Errorf("%s: source is not clean", tpl.ID)
		}
	}

	list[0].Source = "changed"
	if List()[0].Source == "changed" {
		t.Error("List() should return a copy")
	}
}

func TestGet(t *testing.T) {
	tpl, err := Get(" Sequence ")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.ID != "sequence" || !strings.Contains(tpl.Source, "sequenceDiagram") {
		t.Errorf("Get(sequence) = %+v", tpl)
	}

	if _, err := Get("venn"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(venn) err = %v, want not found", err)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
