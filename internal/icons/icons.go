// Package icons resolves task and species icon URLs from configured icon
// sets. An icon set is a base URL plus a format; every icon exists in a
// light and a dark variant.
package icons

import (
	"fmt"
	"strings"

	"fieldmap/internal/model"
)

// Format is the image format an icon set is published in.
type Format string

// Supported icon formats.
const (
	FormatRaster Format = "raster"
	FormatVector Format = "vector"
)

// Variant selects the icon theme.
type Variant string

// Supported icon variants.
const (
	VariantLight Variant = "light"
	VariantDark  Variant = "dark"
)

// Set describes one installed icon set.
type Set struct {
	ID      string
	BaseURL string
	Format  Format
}

func (s Set) ext() string {
	if s.Format == FormatVector {
		return "svg"
	}
	return "png"
}

// Registry resolves icon URLs, falling back to the instance default set
// when a hook names a set that is not installed.
type Registry struct {
	sets       map[string]Set
	defaultSet string
	speciesSet string
}

// NewRegistry builds a registry from the installed sets. defaultSet is
// used for unknown set IDs; speciesSet is the default source of
// species-specific icons.
func NewRegistry(sets []Set, defaultSet, speciesSet string) *Registry {
	m := make(map[string]Set, len(sets))
	for _, s := range sets {
		m[s.ID] = s
	}
	return &Registry{sets: m, defaultSet: defaultSet, speciesSet: speciesSet}
}

// Resolve returns the URL for a named icon in the given set and variant.
func (r *Registry) Resolve(setID, icon string, variant Variant) string {
	set, ok := r.sets[setID]
	if !ok {
		set, ok = r.sets[r.defaultSet]
	}
	if !ok {
		return ""
	}
	if variant != VariantDark {
		variant = VariantLight
	}
	return fmt.Sprintf("%s/%s/%s.%s", strings.TrimSuffix(set.BaseURL, "/"), variant, icon, set.ext())
}

// ResolveSpecies returns the URL for a species icon.
func (r *Registry) ResolveSpecies(setID, species string, variant Variant) string {
	if setID == "" {
		setID = r.speciesSet
	}
	return r.Resolve(setID, "species/"+strings.ToLower(species), variant)
}

// TaskIcon returns the icon name for a research task. Task icons are
// keyed by the catalog type.
func TaskIcon(task model.Task) string {
	return task.Type
}
