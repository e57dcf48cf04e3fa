// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package number

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  PublicationNumber
	}{
		{"EP1000000A1", PublicationNumber{Country: "EP", Number: "1000000", Kind: "A1"}},
		{"EP1000000", PublicationNumber{Country: "EP", Number: "1000000"}},
		{" ep1000000b1 ", PublicationNumber{Country: "EP", Number: "1000000", Kind: "B1"}},
		{"USRE039998E1", PublicationNumber{Country: "US", Number: "RE039998", Kind: "E1"}},
		{"BR000PI0502229A", PublicationNumber{Country: "BR", Number: "000PI0502229", Kind: "A"}},
		{"WO2003049775A2", PublicationNumber{Country: "WO", Number: "2003049775", Kind: "A2"}},
		{"DE19630877C2", PublicationNumber{Country: "DE", Number: "19630877", Kind: "C2"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "WO2003EP8824", "IT19732A88", "JPHEI 3-53606", "E1000000", "EPABC"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestStripKindCode(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"EP1000000A1", "EP1000000"},
		{"EP1000000", "EP1000000"},
		{"USRE039998E1", "USRE039998"},
		{"WO2003049775A2", "WO2003049775"},
		{"XX-123A", "XX-123"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, StripKindCode(tt.input))
		})
	}
}

func TestCompare(t *testing.T) {
	groups := FullCycleGroup{}
	groups.Add([]string{"EP1000000A1", "EP1000000B1", "WO2001012345A1"})

	tests := []struct {
		name string
		a, b string
		want Match
	}{
		{"exact", "EP1000000A1", "EP1000000A1", MatchExact},
		{"number only", "EP1000000A1", "EP1000000A2", MatchNumber},
		{"number without kind", "EP1000000", "EP1000000B1", MatchNumber},
		{"full cycle", "EP1000000A1", "WO2001012345A1", MatchFullCycle},
		{"unrelated", "EP1000000A1", "EP2000000A1", MatchNone},
		{"empty", "", "EP2000000A1", MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b, groups))
		})
	}

	assert.Equal(t, MatchNone, Compare("EP1000000A1", "WO2001012345A1", nil))
}

func TestFullCycleGroup(t *testing.T) {
	g := FullCycleGroup{}
	g.Add([]string{"EP1000000A1", "EP1000000B1"})
	g.Add([]string{"EP1000000B1", "EP1000000B9"})

	assert.Equal(t, []string{"EP1000000B1"}, g.Siblings("EP1000000A1"))
	// The first list registered for a number wins.
	assert.Equal(t, []string{"EP1000000A1"}, g.Siblings("EP1000000B1"))
	assert.Equal(t, []string{"EP1000000B1"}, g.Siblings("EP1000000B9"))
	assert.True(t, g.Contains("EP1000000B9"))
	assert.False(t, g.Contains("EP1000000A3"))

	assert.Equal(t, []string{"EP1000000B1", "EP1000000A1"}, g.SiblingsLoose("EP1000000A3"))
	assert.Empty(t, g.SiblingsLoose("EP2000000A1"))
	assert.True(t, g.Related("EP1000000A1", "EP1000000B1"))
	assert.False(t, g.Related("EP1000000A1", "EP1000000B9"))
}

func TestWIPOForms(t *testing.T) {
	short, ok := WODenormalize("WO2003049775A2")
	require.True(t, ok)
	assert.Equal(t, "WO03049775A2", short)

	long, ok := WONormalize(short)
	require.True(t, ok)
	assert.Equal(t, "WO2003049775A2", long)

	long, ok = WONormalize("WO9912345A1")
	require.True(t, ok)
	assert.Equal(t, "WO199912345A1", long)

	_, ok = WODenormalize("EP1000000A1")
	assert.False(t, ok)
	_, ok = WODenormalize("WO03049775A2")
	assert.False(t, ok)
	_, ok = WONormalize("WO2003049775A2")
	assert.False(t, ok)
}
