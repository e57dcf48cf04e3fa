// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/patent-chooser/internal/httputil"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/ops"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// NavigatorBackend queries providers that answer with a list of publication
// numbers and a "navigator" paging block: DEPATISnet, IFI CLAIMS and
// FulltextPro.
type NavigatorBackend struct {
	Client    *http.Client
	BaseURL   string
	Provider  string
	UserAgent string
	Metrics   *metrics.Metrics
}

func navigatorFactory(name string) Factory {
	return func(cfg types.Config, client *http.Client, m *metrics.Metrics) Backend {
		return &NavigatorBackend{
			Client:    client,
			BaseURL:   strings.TrimRight(cfg.Datasources[name].BaseURL, "/"),
			Provider:  name,
			UserAgent: cfg.HTTP.UserAgent,
			Metrics:   m,
		}
	}
}

// Name returns the datasource name.
func (b *NavigatorBackend) Name() string { return b.Provider }

// Search fetches the remote page containing opts.Range.
func (b *NavigatorBackend) Search(ctx context.Context, query string, opts Options) (NormalizedResponse, error) {
	params := url.Values{"expression": {query}}
	if opts.Range != "" {
		params.Set("range", opts.Range)
	}
	if opts.Flavor != "" {
		params.Set("flavor", opts.Flavor)
	}
	reqURL := fmt.Sprintf("%s/api/%s/published-data/search?%s", b.BaseURL, b.Provider, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return NormalizedResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	began := time.Now()
	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		b.Metrics.ObserveProvider(b.Provider, "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("%s request: %w", b.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		b.Metrics.ObserveProvider(b.Provider, "not_found", time.Since(began).Seconds())
		return NormalizedResponse{}, ops.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b.Metrics.ObserveProvider(b.Provider, "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("%s returned HTTP %d", b.Provider, resp.StatusCode)
	}

	var nr navigatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		b.Metrics.ObserveProvider(b.Provider, "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("parsing %s response: %w", b.Provider, err)
	}
	b.Metrics.ObserveProvider(b.Provider, "ok", time.Since(began).Seconds())
	return nr.normalize(), nil
}

// Navigator JSON structures.
type navigatorResponse struct {
	Details []string `json:"details"`
	Meta    struct {
		Navigator struct {
			CountTotal  int `json:"count_total"`
			CountPage   int `json:"count_page"`
			Limit       int `json:"limit"`
			Offset      int `json:"offset"`
			Postprocess *struct {
				Action string `json:"action"`
				Info   struct {
					Removed int `json:"removed"`
				} `json:"info"`
			} `json:"postprocess"`
		} `json:"navigator"`
	} `json:"meta"`
	Navigator struct {
		UserInfo      json.RawMessage `json:"user_info"`
		FamilyMembers struct {
			Removed []string `json:"removed"`
		} `json:"family_members"`
	} `json:"navigator"`
	Keywords []string `json:"keywords"`
	Message  string   `json:"message"`
}

func (nr navigatorResponse) normalize() NormalizedResponse {
	nav := nr.Meta.Navigator
	out := NormalizedResponse{
		Numbers:              nr.Details,
		Total:                nav.CountTotal,
		Limit:                nav.Limit,
		Offset:               nav.Offset,
		CountPage:            nav.CountPage,
		UserInfo:             decodeUserInfo(nr.Navigator.UserInfo),
		Message:              nr.Message,
		Keywords:             nr.Keywords,
		FamilyMembersRemoved: nr.Navigator.FamilyMembers.Removed,
	}
	if nav.Postprocess != nil {
		out.Postprocess = &Postprocess{Action: nav.Postprocess.Action, Removed: nav.Postprocess.Info.Removed}
	}
	return out
}

// decodeUserInfo accepts either {"message": .., "kind": ..} or a bare
// string, which is reported as info.
func decodeUserInfo(raw json.RawMessage) *UserInfo {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return &UserInfo{Message: s, Kind: "info"}
	}
	var ui UserInfo
	if err := json.Unmarshal(raw, &ui); err != nil || ui.Message == "" {
		return nil
	}
	if ui.Kind == "" {
		ui.Kind = "info"
	}
	return &ui
}
