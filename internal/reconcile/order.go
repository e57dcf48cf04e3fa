// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"sort"
	"strings"

	"github.com/pdiddy/patent-chooser/internal/number"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// rank returns the position of doc in the requested list:
//  1. the first requested number starting with the full document id,
//  2. else the first starting with the id without kind code,
//  3. else the lowest position of any full-cycle sibling, with or without
//     kind code,
//  4. else len(requested).
func rank(doc types.ResultDocument, requested []string, groups number.FullCycleGroup) int {
	if i := indexPrefixed(requested, doc.ID()); i >= 0 {
		return i
	}
	if i := indexPrefixed(requested, doc.IDNoKind()); i >= 0 {
		return i
	}

	best := -1
	for _, sibling := range siblingsOf(doc, groups) {
		i := indexPrefixed(requested, sibling)
		if i < 0 {
			i = indexPrefixed(requested, number.StripKindCode(sibling))
		}
		if i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	return len(requested)
}

func siblingsOf(doc types.ResultDocument, groups number.FullCycleGroup) []string {
	if s := groups.Siblings(doc.ID()); len(s) > 0 {
		return s
	}
	id := doc.ID()
	var out []string
	for _, n := range doc.FullCycle {
		if n != id {
			out = append(out, n)
		}
	}
	return out
}

func indexPrefixed(requested []string, prefix string) int {
	if prefix == "" {
		return -1
	}
	for i, r := range requested {
		if strings.HasPrefix(r, prefix) {
			return i
		}
	}
	return -1
}

// order sorts docs into requested order. Ranks are computed once before
// sorting; ties keep response order. Placeholders carry their own position.
func order(docs []types.ResultDocument, requested []string, groups number.FullCycleGroup, placeholderRank map[int]int) []types.ResultDocument {
	type ranked struct {
		doc  types.ResultDocument
		rank int
	}
	items := make([]ranked, len(docs))
	for i, d := range docs {
		r, ok := placeholderRank[i]
		if !ok {
			r = rank(d, requested, groups)
		}
		items[i] = ranked{doc: d, rank: r}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].rank < items[j].rank })

	out := make([]types.ResultDocument, len(items))
	for i, it := range items {
		out[i] = it.doc
	}
	return out
}
