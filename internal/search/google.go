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

// googleRemoteLimit is the number of publication numbers per Google page.
const googleRemoteLimit = 100

// GoogleBackend queries the Google Patents scraping endpoint. The provider
// does not always report a hit count.
type GoogleBackend struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	Metrics   *metrics.Metrics
}

func newGoogleBackend(cfg types.Config, client *http.Client, m *metrics.Metrics) Backend {
	return &GoogleBackend{
		Client:    client,
		BaseURL:   strings.TrimRight(cfg.Datasources[types.DatasourceGoogle].BaseURL, "/"),
		UserAgent: cfg.HTTP.UserAgent,
		Metrics:   m,
	}
}

// Name returns the datasource name.
func (b *GoogleBackend) Name() string { return types.DatasourceGoogle }

// Search fetches the remote page of 100 numbers containing opts.Range.
func (b *GoogleBackend) Search(ctx context.Context, query string, opts Options) (NormalizedResponse, error) {
	params := url.Values{"expression": {query}}
	if opts.Range != "" {
		params.Set("range", opts.Range)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/api/google/search?"+params.Encode(), nil)
	if err != nil {
		return NormalizedResponse{}, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	began := time.Now()
	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("google request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		b.Metrics.ObserveProvider(b.Name(), "not_found", time.Since(began).Seconds())
		return NormalizedResponse{}, ops.ErrNotFound
	default:
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("google returned HTTP %d", resp.StatusCode)
	}

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("parsing google response: %w", err)
	}
	b.Metrics.ObserveProvider(b.Name(), "ok", time.Since(began).Seconds())

	total := -1
	if gr.Hits != nil {
		total = *gr.Hits
	}
	return NormalizedResponse{
		Numbers:  gr.Numbers,
		Total:    total,
		Limit:    googleRemoteLimit,
		Message:  gr.Message,
		Keywords: gr.Keywords,
	}, nil
}

type googleResponse struct {
	Numbers  []string `json:"numbers"`
	Hits     *int     `json:"hits"`
	Message  string   `json:"message"`
	Keywords []string `json:"keywords"`
}
