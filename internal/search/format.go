// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatTable writes the result state as a human-readable table to w.
func FormatTable(s State, w io.Writer) {
	md := s.Metadata
	if len(s.Documents) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-18s  %-50s  %-24s  %s\n",
		"#", "Number", "Title", "Applicant", "Date")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	offset := rangeOffset(md.ResultRange)
	for i, d := range s.Documents {
		title := d.Title
		if d.Placeholder {
			title = "(not available)"
			if len(d.AlternativesLocal) > 0 {
				title += " see " + strings.Join(d.AlternativesLocal, ", ")
			}
		}
		fmt.Fprintf(w, "%-4d  %-18s  %-50s  %-24s  %s\n",
			offset+i+1, d.ID(), truncate(title, 50), formatApplicants(d.Applicants), d.PublicationDate)
	}

	fmt.Fprintf(w, "\n%d documents", len(s.Documents))
	if md.ResultCount > 0 {
		fmt.Fprintf(w, " of %d hits", md.ResultCount)
	}
	if len(s.Missing) > 0 {
		fmt.Fprintf(w, " (%d not available)", len(s.Missing))
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the result state as indented JSON to w.
func FormatJSON(s State, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func rangeOffset(rng string) int {
	var start, end int
	if _, err := fmt.Sscanf(rng, "%d-%d", &start, &end); err != nil || start < 1 {
		return 0
	}
	return start - 1
}

func formatApplicants(applicants []string) string {
	switch len(applicants) {
	case 0:
		return ""
	case 1:
		return truncate(applicants[0], 24)
	default:
		return truncate(applicants[0], 18) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
