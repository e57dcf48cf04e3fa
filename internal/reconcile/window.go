// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultRange is the display range used when a request names none.
const DefaultRange = "1-10"

// Window converts a 1-based inclusive display range into slice bounds over
// the requested list. When remoteLimit is set the upstream provider already
// returned only the page containing the range, so both bounds are reduced
// into that page's local coordinates first.
func Window(rng string, remoteLimit int) (start, end int, err error) {
	if strings.TrimSpace(rng) == "" {
		rng = DefaultRange
	}
	first, last, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q", rng)
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || a < 1 {
		return 0, 0, fmt.Errorf("invalid range start %q", first)
	}
	b, err := strconv.Atoi(strings.TrimSpace(last))
	if err != nil || b < a {
		return 0, 0, fmt.Errorf("invalid range end %q", last)
	}

	start, end = a-1, b
	if remoteLimit > 0 {
		start %= remoteLimit
		end %= remoteLimit
		if end == 0 {
			end = remoteLimit
		}
	}
	return start, end, nil
}

// Slice returns entries[start:end] clamped to the list. A start beyond the
// list yields an empty window.
func Slice(entries []string, start, end int) []string {
	if start >= len(entries) || end <= start {
		return nil
	}
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

// BuildQuery emits field=value for each number and joins the constraints
// with the operator, e.g. "pn=EP1000000 OR pn=US7654321".
func BuildQuery(numbers []string, field, operator string) string {
	constraints := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.Trim(strings.TrimSpace(n), `"`)
		if n == "" {
			continue
		}
		constraints = append(constraints, field+"="+n)
	}
	return strings.Join(constraints, " "+operator+" ")
}

func filterBlank(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.ToUpper(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}
