// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package number parses patent publication numbers and compares them at the
// three match strengths the result reconciliation needs: exact (with kind
// code), country+number, and full-cycle equivalence.
package number

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned by Parse for strings that are not publication numbers.
var ErrInvalid = errors.New("invalid publication number")

// publicationPattern splits a publication number into country, number body,
// and optional kind code. The body may carry a short letter prefix such as
// US "RE" reissues or the Brazilian "000PI" block.
var publicationPattern = regexp.MustCompile(`^([A-Z]{2})((?:\d{3}PI|[A-Z]{1,2})?\d+)([A-Z]\d?)?$`)

// trailingKindPattern matches a kind code that follows a digit.
var trailingKindPattern = regexp.MustCompile(`(\d)[A-Z]\d?$`)

// PublicationNumber is a structured patent identifier.
type PublicationNumber struct {
	Country string `json:"country"`
	Number  string `json:"number"`
	Kind    string `json:"kind,omitempty"`
}

// Parse splits s into its country, number, and kind code parts. Input is
// trimmed and upper-cased first.
func Parse(s string) (PublicationNumber, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	m := publicationPattern.FindStringSubmatch(raw)
	if m == nil {
		return PublicationNumber{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return PublicationNumber{Country: m[1], Number: m[2], Kind: m[3]}, nil
}

// String returns the normalized form country+number+kind.
func (p PublicationNumber) String() string {
	return p.Country + p.Number + p.Kind
}

// NoKind returns country+number.
func (p PublicationNumber) NoKind() string {
	return p.Country + p.Number
}

// HasKind reports whether the number carries a kind code.
func (p PublicationNumber) HasKind() bool {
	return p.Kind != ""
}

// StripKindCode removes the kind code from a publication number string
// (e.g. "EP1000000A1" -> "EP1000000"). Strings that do not parse keep
// everything up to a trailing kind code that follows a digit.
func StripKindCode(s string) string {
	if p, err := Parse(s); err == nil {
		return p.NoKind()
	}
	return trailingKindPattern.ReplaceAllString(strings.TrimSpace(s), "$1")
}

// Match is the strength at which two publication numbers correspond.
type Match int

const (
	MatchNone Match = iota
	MatchFullCycle
	MatchNumber
	MatchExact
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchNumber:
		return "number"
	case MatchFullCycle:
		return "full-cycle"
	default:
		return "none"
	}
}

// Compare returns the strongest match between a and b. Full-cycle
// equivalence is only detected when groups is non-nil.
func Compare(a, b string, groups FullCycleGroup) Match {
	if a == "" || b == "" {
		return MatchNone
	}
	if a == b {
		return MatchExact
	}
	if StripKindCode(a) == StripKindCode(b) {
		return MatchNumber
	}
	if groups != nil && groups.Related(a, b) {
		return MatchFullCycle
	}
	return MatchNone
}
