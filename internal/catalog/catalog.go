// Package catalog holds the static registry of phishing lure templates.
package catalog

import (
	"sort"
	"strings"
)

// Placeholder is the marker in a template body replaced with the
// recipient's tracking URL.
const Placeholder = "{tracking_url}"

// Template is an immutable lure template
type Template struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Body       string `json:"-"` // HTML with exactly one tracking URL placeholder
	Difficulty string `json:"difficulty"`
}

// Render substitutes the tracking URL into the template body
func (t *Template) Render(trackingURL string) string {
	return strings.ReplaceAll(t.Body, Placeholder, trackingURL)
}

// Summary is the listing view of a template
type Summary struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
}

// Catalog is a read-only template registry
type Catalog struct {
	templates map[string]*Template
}

// New creates a catalog seeded with the stock templates
func New() *Catalog {
	c := &Catalog{templates: make(map[string]*Template)}
	for _, t := range stockTemplates {
		c.templates[t.ID] = t
	}
	return c
}

// Get returns the template with the given ID, or nil if unknown
func (c *Catalog) Get(id string) *Template {
	return c.templates[id]
}

// List returns summaries of all templates, ordered by ID
func (c *Catalog) List() []Summary {
	summaries := make([]Summary, 0, len(c.templates))
	for _, t := range c.templates {
		summaries = append(summaries, Summary{
			ID:         t.ID,
			Subject:    t.Subject,
			Difficulty: t.Difficulty,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})

	return summaries
}
