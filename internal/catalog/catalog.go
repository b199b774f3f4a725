package catalog

import (
	"sort"
	"strings"

	"github.com/devforge-io/devforge/internal/model"
)

// Catalog is the keyed, read-only registry of built-in features and
// templates. All lookup methods are safe for concurrent use because the
// underlying maps are never mutated after construction.
type Catalog struct {
	// features maps qualified feature IDs to their definitions.
	features map[string]model.Feature

	// templates maps template IDs to their definitions.
	templates map[string]model.Template

	// shortNames maps convenient short names ("dotnet") to qualified
	// feature IDs ("devforge/dotnet@1").
	shortNames map[string]string

	// extensionPacks maps categories to recommended editor extension IDs,
	// used to enrich generated configurations per template category.
	extensionPacks map[model.Category][]string
}

// New constructs a Catalog from explicit feature and template lists.
// Short names are derived from each feature ID's middle segment
// ("org/name@version" → "name"); collisions resolve to the first feature
// registered, in input order, so callers control precedence.
func New(features []model.Feature, templates []model.Template) *Catalog {
	c := &Catalog{
		features:       make(map[string]model.Feature, len(features)),
		templates:      make(map[string]model.Template, len(templates)),
		shortNames:     make(map[string]string, len(features)),
		extensionPacks: make(map[model.Category][]string),
	}

	for _, f := range features {
		c.features[f.ID] = f
		if short := shortName(f.ID); short != "" {
			if _, taken := c.shortNames[short]; !taken {
				c.shortNames[short] = f.ID
			}
		}
	}
	for _, t := range templates {
		c.templates[t.ID] = t
	}

	return c
}

// NewDefault constructs the catalog of built-in features, templates, and
// per-category extension packs shipped with the binary.
func NewDefault() *Catalog {
	c := New(builtinFeatures(), builtinTemplates())
	c.extensionPacks = builtinExtensionPacks()
	return c
}

// shortName extracts the feature name segment from a qualified ID.
// Returns "" when the ID is not in the "org/name@version" form.
func shortName(id string) string {
	_, rest, found := strings.Cut(id, "/")
	if !found {
		return ""
	}
	name, _, _ := strings.Cut(rest, "@")
	return name
}

// Feature looks up a feature by its qualified ID.
func (c *Catalog) Feature(id string) (model.Feature, bool) {
	f, ok := c.features[id]
	return f, ok
}

// Template looks up a template by its ID.
func (c *Catalog) Template(id string) (model.Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// ExpandShortName resolves a requested feature identifier to its qualified
// form. Qualified IDs (containing a "/") pass through when known; bare
// short names are expanded via the short-name table. Returns false when
// the identifier matches neither.
func (c *Catalog) ExpandShortName(name string) (string, bool) {
	if strings.Contains(name, "/") {
		_, ok := c.features[name]
		return name, ok
	}
	id, ok := c.shortNames[strings.ToLower(name)]
	return id, ok
}

// Features returns all features sorted by ID.
func (c *Catalog) Features() []model.Feature {
	out := make([]model.Feature, 0, len(c.features))
	for _, f := range c.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FeaturesByCategory returns the features in the given category, sorted by ID.
func (c *Catalog) FeaturesByCategory(cat model.Category) []model.Feature {
	var out []model.Feature
	for _, f := range c.features {
		if f.Category == cat {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Templates returns all templates sorted by ID.
func (c *Catalog) Templates() []model.Template {
	out := make([]model.Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SearchTemplates returns templates whose ID, name, or description contains
// the query (case-insensitive), sorted by ID. An empty query matches all.
func (c *Catalog) SearchTemplates(query string) []model.Template {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []model.Template
	for _, t := range c.templates {
		if q == "" ||
			strings.Contains(strings.ToLower(t.ID), q) ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExtensionsFor returns the recommended editor extensions for a category.
// Unrecognized categories fall back to the CategoryOther pack.
func (c *Catalog) ExtensionsFor(cat model.Category) []string {
	if exts, ok := c.extensionPacks[cat]; ok {
		return exts
	}
	return c.extensionPacks[model.CategoryOther]
}
