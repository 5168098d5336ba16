// Package gallery provides starter diagrams, one per supported diagram type.
package gallery

import (
	"embed"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

//go:embed templates/*.mmd
var templateFS embed.FS

// Template is a starter diagram.
type Template struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

var index = []Template{
	{ID: "flowchart", Title: "Order fulfilment", Category: "flowchart"},
	{ID: "sequence", Title: "Login sequence", Category: "sequence"},
	{ID: "class", Title: "Order model", Category: "class"},
	{ID: "state", Title: "Publishing workflow", Category: "state"},
	{ID: "er", Title: "Shop schema", Category: "er"},
	{ID: "gantt", Title: "Product launch plan", Category: "gantt"},
	{ID: "pie", Title: "Traffic sources", Category: "pie"},
	{ID: "mindmap", Title: "Team offsite", Category: "mindmap"},
	{ID: "timeline", Title: "Company history", Category: "timeline"},
	{ID: "journey", Title: "Checkout journey", Category: "journey"},
}

var templates = load()

func load() []Template {
	out := make([]Template, len(index))
	for i, t := range index {
		data, err := templateFS.ReadFile("templates/" + t.ID + ".mmd")
		if err != nil {
			panic("gallery: missing template " + t.ID)
		}
		t.Source = strings.TrimSpace(string(data))
		out[i] = t
	}
	return out
}

// List returns every template in display order.
func List() []Template {
	return append([]Template(nil), templates...)
}

// Get returns the template with the given ID.
func Get(id string) (Template, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, errors.New(errors.ErrCodeNotFound, "no template %q", id)
}

// IDs returns the template IDs.
func IDs() []string {
	ids := make([]string, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}
	return ids
}
