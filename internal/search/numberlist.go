// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyNumberlist is returned when a numberlist search has no numbers
// left after parsing.
var ErrEmptyNumberlist = errors.New("empty numberlist")

// EmptyNumberlistMessage is the warning shown for an empty numberlist.
const EmptyNumberlistMessage = "An empty numberlist can't be requested, please add some publication numbers."

var numberlistSeparator = regexp.MustCompile(`[,\n]`)

// Numberlist is a parsed numberlist: the query field and the numbers.
type Numberlist struct {
	Field   string
	Numbers []string
}

// ParseNumberlist reads a comma or newline separated list of numbers,
// optionally prefixed with "field=". Entries starting with "//" or "#" are
// comments. The default field is "pn".
func ParseNumberlist(payload string) Numberlist {
	nl := Numberlist{Field: "pn"}
	if strings.TrimSpace(payload) == "" {
		return nl
	}
	if field, rest, ok := strings.Cut(payload, "="); ok && !strings.Contains(rest, "=") {
		if f := strings.TrimSpace(field); f != "" {
			nl.Field = f
		}
		payload = rest
	}
	for _, entry := range numberlistSeparator.Split(payload, -1) {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "//") || strings.HasPrefix(entry, "#") {
			continue
		}
		nl.Numbers = append(nl.Numbers, entry)
	}
	return nl
}
