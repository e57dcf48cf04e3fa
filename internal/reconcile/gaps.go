// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"slices"
	"strings"

	"github.com/pdiddy/patent-chooser/internal/number"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// Missing is a requested number without a matching document.
type Missing struct {
	Number            string   `json:"number"`
	AlternativesLocal []string `json:"alternatives_local"`
}

// index holds the lookups gap detection needs over one response batch.
type index struct {
	withKind []string
	ids      map[string]bool
	noKind   map[string]bool
	swapped  map[string]bool
	groups   number.FullCycleGroup
}

func buildIndex(docs []types.ResultDocument) index {
	ix := index{
		ids:     map[string]bool{},
		noKind:  map[string]bool{},
		swapped: map[string]bool{},
		groups:  number.FullCycleGroup{},
	}
	for _, d := range docs {
		ix.withKind = append(ix.withKind, d.ID())
		ix.ids[d.ID()] = true
		ix.noKind[d.IDNoKind()] = true
		ix.groups.Add(d.FullCycle)
		for _, s := range d.Swapped {
			ix.swapped[s] = true
		}
	}
	return ix
}

// found reports whether requested is covered by the batch: directly, by a
// kind-code-less match when no kind was requested, through the provider's
// swapped annotation, or as a full-cycle stage of a returned document.
func (ix index) found(requested string) bool {
	noKind := number.StripKindCode(requested)
	if ix.ids[requested] {
		return true
	}
	if requested == noKind && ix.noKind[noKind] {
		return true
	}
	if ix.swapped[requested] || ix.swapped[noKind] {
		return true
	}
	return ix.groups.Contains(requested)
}

// alternatives collects returned ids plausibly related to a missing number.
// The result is never nil.
func (ix index) alternatives(requested string) []string {
	out := []string{}
	add := func(n string) {
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}

	noKind := number.StripKindCode(requested)
	for _, id := range ix.withKind {
		if strings.HasPrefix(id, noKind) {
			add(id)
		}
	}
	for _, n := range ix.groups.SiblingsLoose(requested) {
		add(n)
	}
	if short, ok := number.WODenormalize(requested); ok {
		for _, id := range ix.withKind {
			if strings.HasPrefix(id, short) {
				add(id)
			}
		}
	}
	return out
}

// detectGaps returns the requested numbers the batch does not cover, in
// requested order.
func detectGaps(requested []string, docs []types.ResultDocument) []Missing {
	ix := buildIndex(docs)
	var missing []Missing
	for _, r := range requested {
		if ix.found(r) {
			continue
		}
		missing = append(missing, Missing{Number: r, AlternativesLocal: ix.alternatives(r)})
	}
	return missing
}

// placeholder builds the synthetic document for a missing number.
func placeholder(m Missing) types.ResultDocument {
	doc := types.ResultDocument{Placeholder: true, AlternativesLocal: m.AlternativesLocal}
	if p, err := number.Parse(m.Number); err == nil {
		doc.Country, doc.DocNumber, doc.Kind = p.Country, p.Number, p.Kind
		return doc
	}
	if len(m.Number) > 2 {
		doc.Country, doc.DocNumber = m.Number[:2], m.Number[2:]
	} else {
		doc.DocNumber = m.Number
	}
	return doc
}
