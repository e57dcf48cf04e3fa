// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the patent-chooser
// components: result documents, search metadata, basket entries, and the
// configuration structs loaded by internal/config.
package types

import "encoding/json"

// Well-known datasource names.
const (
	DatasourceOPS         = "ops"
	DatasourceDEPATISnet  = "depatisnet"
	DatasourceIFIClaims   = "ifi"
	DatasourceFulltextPro = "ftpro"
	DatasourceGoogle      = "google"
	DatasourcePatentsView = "patentsview"
	DatasourceReview      = "review"
)

// ResultDocument is a bibliographic record returned by the primary provider,
// or a placeholder synthesized for a requested number the provider did not
// return.
type ResultDocument struct {
	Country   string `json:"country" yaml:"country"`
	DocNumber string `json:"doc_number" yaml:"doc_number"`
	Kind      string `json:"kind,omitempty" yaml:"kind,omitempty"`

	Title           string   `json:"title,omitempty" yaml:"title,omitempty"`
	Applicants      []string `json:"applicants,omitempty" yaml:"applicants,omitempty"`
	Inventors       []string `json:"inventors,omitempty" yaml:"inventors,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`

	// FullCycle lists every publication stage of the underlying application,
	// including this document itself.
	FullCycle []string `json:"full_cycle,omitempty" yaml:"full_cycle,omitempty"`

	// Swapped lists requested numbers the provider answered with this
	// document instead.
	Swapped []string `json:"swapped,omitempty" yaml:"swapped,omitempty"`

	// Placeholder marks a synthetic record standing in for a missing number.
	Placeholder bool `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// AlternativesLocal holds numbers from the same result batch that are
	// plausibly related to a missing number. Only set on placeholders.
	AlternativesLocal []string `json:"alternatives_local,omitempty" yaml:"alternatives_local,omitempty"`
}

// ID returns country + number + kind code.
func (d ResultDocument) ID() string {
	return d.Country + d.DocNumber + d.Kind
}

// MarshalJSON always emits alternatives_local on placeholders, as an empty
// list when there are no candidates. Other documents omit it.
func (d ResultDocument) MarshalJSON() ([]byte, error) {
	type plain ResultDocument
	if !d.Placeholder {
		return json.Marshal(plain(d))
	}
	alternatives := d.AlternativesLocal
	if alternatives == nil {
		alternatives = []string{}
	}
	return json.Marshal(struct {
		plain
		AlternativesLocal []string `json:"alternatives_local"`
	}{plain(d), alternatives})
}

// IDNoKind returns country + number without the kind code.
func (d ResultDocument) IDNoKind() string {
	return d.Country + d.DocNumber
}

// SearchMetadata is the per-session search state read by pagination and by
// the reconciliation engine.
type SearchMetadata struct {
	Datasource  string `json:"datasource" yaml:"datasource"`
	Query       string `json:"query,omitempty" yaml:"query,omitempty"`
	QueryOrigin string `json:"query_origin,omitempty" yaml:"query_origin,omitempty"`
	ResultCount int    `json:"result_count" yaml:"result_count"`
	PageSize    int    `json:"page_size" yaml:"page_size"`
	ResultRange string `json:"result_range,omitempty" yaml:"result_range,omitempty"`
	ReviewMode  bool   `json:"reviewmode" yaml:"reviewmode"`

	// SearchMode is "subsearch" while results come from a list search.
	SearchMode string   `json:"searchmode,omitempty" yaml:"searchmode,omitempty"`
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// DefaultPageSize is the primary provider's per-call limit for number-keyed
// lookups.
const DefaultPageSize = 10

// ResetDefaults clears the fields that belong to a single top-level search.
// Datasource and review mode survive the reset.
func (m *SearchMetadata) ResetDefaults(pageSize int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	m.Query = ""
	m.QueryOrigin = ""
	m.ResultCount = 0
	m.PageSize = pageSize
	m.ResultRange = ""
	m.SearchMode = ""
	m.Keywords = nil
}
