// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// ErrUnknownDatasource is returned for a datasource with no backend.
var ErrUnknownDatasource = errors.New("unknown datasource")

// Backend searches one auxiliary provider. Each provider implements this
// interface; the orchestrator selects them by name from a lookup table.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, opts Options) (NormalizedResponse, error)
}

// Options carry the paging and flavor parameters of one search.
type Options struct {
	// Range is the 1-based display range, e.g. "11-20".
	Range string

	Flavor   string
	Keywords string
}

// NormalizedResponse is the provider-independent stage-1 answer: one page
// of publication numbers plus the provider's paging metadata.
type NormalizedResponse struct {
	Numbers []string `json:"numbers"`

	// Total is the provider-declared hit count; -1 means unknown.
	Total int `json:"total"`

	// Limit and Offset describe the remote page Numbers belongs to.
	Limit  int `json:"limit"`
	Offset int `json:"offset"`

	// CountPage is the number of hits on the remote page before any
	// postprocessing removed some.
	CountPage int `json:"count_page,omitempty"`

	Postprocess *Postprocess `json:"postprocess,omitempty"`
	UserInfo    *UserInfo    `json:"user_info,omitempty"`
	Message     string       `json:"message,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`

	FamilyMembersRemoved []string `json:"family_members_removed,omitempty"`
}

// Postprocess reports a provider-side filter applied to the remote page.
type Postprocess struct {
	Action  string `json:"action"`
	Removed int    `json:"removed"`
}

// PostprocessFamilyRemove is the action name for family-member removal.
const PostprocessFamilyRemove = "feature_family_remove"

// UserInfo is a provider message meant for the user.
type UserInfo struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Factory builds a backend from configuration.
type Factory func(cfg types.Config, client *http.Client, m *metrics.Metrics) Backend

// registry maps datasource names to backend factories.
var registry = map[string]Factory{
	types.DatasourceDEPATISnet:  navigatorFactory(types.DatasourceDEPATISnet),
	types.DatasourceIFIClaims:   navigatorFactory(types.DatasourceIFIClaims),
	types.DatasourceFulltextPro: navigatorFactory(types.DatasourceFulltextPro),
	types.DatasourceGoogle:      newGoogleBackend,
	types.DatasourcePatentsView: newPatentsViewBackend,
}

// Lookup returns the factory registered for a datasource.
func Lookup(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}

// Datasources lists the registered auxiliary datasource names.
func Datasources() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildBackends instantiates every datasource enabled in cfg.
func BuildBackends(cfg types.Config, m *metrics.Metrics) map[string]Backend {
	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	backends := make(map[string]Backend)
	for name, ds := range cfg.Datasources {
		if !ds.Enabled {
			continue
		}
		if f, ok := Lookup(name); ok {
			backends[name] = f(cfg, client, m)
		}
	}
	return backends
}
