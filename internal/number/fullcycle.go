// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package number

import (
	"slices"
	"sort"
	"strings"
)

// FullCycleGroup maps a publication number to the other publication stages
// of the same application. A group lives for one reconciliation pass and is
// built from the full-cycle lists embedded in the response documents.
type FullCycleGroup map[string][]string

// Add registers a full-cycle member list. The first list seen for a number
// wins; later lists do not overwrite it.
func (g FullCycleGroup) Add(members []string) {
	for _, n := range members {
		if n == "" {
			continue
		}
		if _, ok := g[n]; ok {
			continue
		}
		siblings := make([]string, 0, len(members))
		for _, m := range members {
			if m != n && m != "" {
				siblings = append(siblings, m)
			}
		}
		g[n] = siblings
	}
}

// Contains reports whether n is a member of any registered list.
func (g FullCycleGroup) Contains(n string) bool {
	_, ok := g[n]
	return ok
}

// Siblings returns the other stages registered for n.
func (g FullCycleGroup) Siblings(n string) []string {
	return g[n]
}

// SiblingsLoose returns the siblings of n. When n itself is not registered it
// falls back to every member whose number (without kind code) matches n's,
// collecting their siblings in key order.
func (g FullCycleGroup) SiblingsLoose(n string) []string {
	if s := g[n]; len(s) > 0 {
		return s
	}
	prefix := StripKindCode(n)
	if prefix == "" {
		return nil
	}
	keys := make([]string, 0, len(g))
	for k := range g {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		for _, s := range g[k] {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// Related reports whether a and b are registered as stages of the same
// application.
func (g FullCycleGroup) Related(a, b string) bool {
	return slices.Contains(g[a], b) || slices.Contains(g[b], a)
}
