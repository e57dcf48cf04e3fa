// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// BasketEntry is one document number collected by the reviewer.
type BasketEntry struct {
	// ID is the stable storage key for the entry.
	ID string `json:"id" yaml:"id"`

	Number    string    `json:"number" yaml:"number"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`

	// Score is the rating from 1 to 3; nil means unrated.
	Score *int `json:"score,omitempty" yaml:"score,omitempty"`

	// Dismiss marks the entry as not relevant; nil means undecided.
	Dismiss *bool `json:"dismiss,omitempty" yaml:"dismiss,omitempty"`

	// Seen is set when the document was displayed without being rated.
	Seen bool `json:"seen,omitempty" yaml:"seen,omitempty"`
}

// MaxScore is the highest rating a basket entry can carry.
const MaxScore = 3

// Dismissed reports whether the dismiss flag is set to true.
func (e BasketEntry) Dismissed() bool {
	return e.Dismiss != nil && *e.Dismiss
}

// ScoreValue returns the score, or 0 when the entry is unrated.
func (e BasketEntry) ScoreValue() int {
	if e.Score == nil {
		return 0
	}
	return *e.Score
}

// SearchInfo summarizes one search attempt. It travels with the search
// lifecycle signals and is recorded into the project query history.
type SearchInfo struct {
	Datasource  string `json:"datasource" yaml:"datasource"`
	Query       string `json:"query" yaml:"query"`
	Range       string `json:"range,omitempty" yaml:"range,omitempty"`
	Flavor      string `json:"flavor,omitempty" yaml:"flavor,omitempty"`
	ResultCount int    `json:"result_count" yaml:"result_count"`
}
