// Package category holds the fixed set of report categories, their keyword
// lists and the labels offered to the zero-shot classifier.
package category

import (
	"fmt"

	"github.com/rajasatyajit/civictriage/internal/models"
)

// Category names.
const (
	Pothole        = "pothole"
	Streetlight    = "streetlight"
	Litter         = "litter"
	Graffiti       = "graffiti"
	Safety         = "safety"
	Infrastructure = "infrastructure"
	Social         = "social"
	Other          = "other"
	Irrelevant     = "irrelevant"
)

// Definition describes one category.
type Definition struct {
	Name            string          `json:"name"`
	Keywords        []string        `json:"keywords"`
	ClassifierLabel string          `json:"classifier_label"`
	DefaultSeverity models.Severity `json:"default_severity"`
	// UserFacing is false for categories that only exist to absorb classifier
	// output; they are never keyword-matched or shown to reporters.
	UserFacing bool `json:"user_facing"`
}

// Registry is an ordered, immutable set of definitions. Order matters: it is
// the classifier label order and the keyword tie-break order.
type Registry struct {
	defs    []Definition
	byName  map[string]int
	byLabel map[string]int
}

// NewRegistry validates defs and builds a registry. Names and classifier
// labels must be unique and non-empty.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:    make([]Definition, len(defs)),
		byName:  make(map[string]int, len(defs)),
		byLabel: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if d.Name == "" || d.ClassifierLabel == "" {
			return nil, fmt.Errorf("category %d: name and classifier label are required", i)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate category name %q", d.Name)
		}
		if _, dup := r.byLabel[d.ClassifierLabel]; dup {
			return nil, fmt.Errorf("duplicate classifier label %q", d.ClassifierLabel)
		}
		if !d.DefaultSeverity.Valid() {
			return nil, fmt.Errorf("category %q: invalid default severity %q", d.Name, d.DefaultSeverity)
		}
		d.Keywords = append([]string(nil), d.Keywords...)
		r.defs[i] = d
		r.byName[d.Name] = i
		r.byLabel[d.ClassifierLabel] = i
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error.
func MustRegistry(defs []Definition) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRegistry = MustRegistry(Defaults())

// Default returns the built-in registry.
func Default() *Registry { return defaultRegistry }

// Defaults returns a fresh copy of the built-in category table.
func Defaults() []Definition {
	return []Definition{
		{
			Name:            Pothole,
			Keywords:        []string{"pothole", "pot hole", "hole", "crater", "road damage", "pavement damage", "road", "street damage", "asphalt", "crack", "bump"},
			ClassifierLabel: "pothole and road damage",
			DefaultSeverity: models.SeverityHigh,
			UserFacing:      true,
		},
		{
			Name:            Streetlight,
			Keywords:        []string{"street light", "streetlight", "light", "lamp", "lighting", "dark", "illumination", "bulb", "pole light", "blackout", "flickering"},
			ClassifierLabel: "broken streetlight or lighting issue",
			DefaultSeverity: models.SeverityMedium,
			UserFacing:      true,
		},
		{
			Name:            Litter,
			Keywords:        []string{"trash", "litter", "garbage", "rubbish", "waste", "dump", "dirty", "mess", "debris"},
			ClassifierLabel: "trash litter and garbage",
			DefaultSeverity: models.SeverityLow,
			UserFacing:      true,
		},
		{
			Name:            Graffiti,
			Keywords:        []string{"graffiti", "vandal", "paint", "tag", "spray", "defacement", "drawing"},
			ClassifierLabel: "graffiti and vandalism",
			DefaultSeverity: models.SeverityLow,
			UserFacing:      true,
		},
		{
			Name:            Safety,
			Keywords:        []string{"danger", "dangerous", "unsafe", "hazard", "risk", "emergency", "threat", "accident"},
			ClassifierLabel: "safety hazard or danger",
			DefaultSeverity: models.SeverityHigh,
			UserFacing:      true,
		},
		{
			Name:            Infrastructure,
			Keywords:        []string{"bridge", "tunnel", "sidewalk", "curb", "sign", "bench", "fence", "drain", "pipe", "leak"},
			ClassifierLabel: "public infrastructure issue",
			DefaultSeverity: models.SeverityMedium,
			UserFacing:      true,
		},
		{
			Name:            Social,
			Keywords:        []string{"homeless", "beggar", "noise", "disturbance", "public drinking", "loitering", "camp"},
			ClassifierLabel: "social issue or public disturbance",
			DefaultSeverity: models.SeverityMedium,
			UserFacing:      true,
		},
		{
			Name:            Other,
			Keywords:        []string{"issue", "problem", "concern", "repair", "fix", "broken", "damage"},
			ClassifierLabel: "general urban issue",
			DefaultSeverity: models.SeverityMedium,
			UserFacing:      true,
		},
		{
			Name:            Irrelevant,
			ClassifierLabel: "irrelevant text, personal statement, or gibberish",
			DefaultSeverity: models.SeverityLow,
			UserFacing:      false,
		},
	}
}

// All returns the definitions in registry order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// UserFacing returns the definitions shown to reporters, in registry order.
func (r *Registry) UserFacing() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		if d.UserFacing {
			out = append(out, d)
		}
	}
	return out
}

// Labels returns every classifier label in registry order.
func (r *Registry) Labels() []string {
	out := make([]string, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.ClassifierLabel
	}
	return out
}

// Get looks a definition up by name.
func (r *Registry) Get(name string) (Definition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// ByLabel maps a classifier label back to its definition.
func (r *Registry) ByLabel(label string) (Definition, bool) {
	i, ok := r.byLabel[label]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// DefaultSeverity returns the category's default, or medium for unknown names.
func (r *Registry) DefaultSeverity(name string) models.Severity {
	if d, ok := r.Get(name); ok {
		return d.DefaultSeverity
	}
	return models.SeverityMedium
}

// Known reports whether name is a registered category.
func (r *Registry) Known(name string) bool {
	_, ok := r.byName[name]
	return ok
}
