// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ops talks to the primary bibliographic data provider and to the
// number normalization service that sits next to it.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/patent-chooser/internal/httputil"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// ErrNotFound is returned when the provider answers 404. Callers treat it
// as a zero-hit result, not as a failure.
var ErrNotFound = errors.New("no documents found")

// ProviderName labels primary provider metrics.
const ProviderName = types.DatasourceOPS

// Page is one ranged response from the primary provider.
type Page struct {
	Documents []types.ResultDocument `json:"documents"`
	TotalHits int                    `json:"total_hits"`
}

// Client queries the published-data search endpoint.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	APIKey    string
	UserAgent string
	Metrics   *metrics.Metrics
}

// NewClient builds a client from the primary provider and HTTP settings.
func NewClient(cfg types.PrimaryConfig, hc types.HTTPConfig, m *metrics.Metrics) *Client {
	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:    cfg.APIKey,
		UserAgent: hc.UserAgent,
		Metrics:   m,
	}
}

// Fetch runs query for the 1-based inclusive range start-end.
func (c *Client) Fetch(ctx context.Context, query string, start, end int) (Page, error) {
	params := url.Values{
		"query": {query},
		"range": {fmt.Sprintf("%d-%d", start, end)},
	}
	reqURL := c.BaseURL + "/api/ops/published-data/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	c.decorate(req)

	began := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		c.Metrics.ObserveProvider(ProviderName, "error", time.Since(began).Seconds())
		return Page{}, fmt.Errorf("primary provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.Metrics.ObserveProvider(ProviderName, "not_found", time.Since(began).Seconds())
		return Page{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.Metrics.ObserveProvider(ProviderName, "error", time.Since(began).Seconds())
		return Page{}, fmt.Errorf("primary provider returned HTTP %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.Metrics.ObserveProvider(ProviderName, "error", time.Since(began).Seconds())
		return Page{}, fmt.Errorf("parsing primary provider response: %w", err)
	}
	c.Metrics.ObserveProvider(ProviderName, "ok", time.Since(began).Seconds())

	page := Page{TotalHits: body.TotalHits, Documents: make([]types.ResultDocument, 0, len(body.Documents))}
	for _, d := range body.Documents {
		page.Documents = append(page.Documents, d.toResult())
	}
	return page, nil
}

func (c *Client) decorate(req *http.Request) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}

// Provider JSON structures.
type searchResponse struct {
	TotalHits int           `json:"total_hits"`
	Documents []documentDTO `json:"documents"`
}

type documentDTO struct {
	Country         string   `json:"country"`
	DocNumber       string   `json:"doc_number"`
	Kind            string   `json:"kind"`
	Title           string   `json:"title"`
	Applicants      []string `json:"applicants"`
	Inventors       []string `json:"inventors"`
	PublicationDate string   `json:"publication_date"`
	FullCycle       []string `json:"full_cycle"`
	Meta            struct {
		Swapped *struct {
			List []string `json:"list"`
		} `json:"swapped"`
	} `json:"__meta__"`
}

func (d documentDTO) toResult() types.ResultDocument {
	r := types.ResultDocument{
		Country:         strings.ToUpper(d.Country),
		DocNumber:       d.DocNumber,
		Kind:            strings.ToUpper(d.Kind),
		Title:           d.Title,
		Applicants:      d.Applicants,
		Inventors:       d.Inventors,
		PublicationDate: d.PublicationDate,
		FullCycle:       d.FullCycle,
	}
	if d.Meta.Swapped != nil {
		r.Swapped = d.Meta.Swapped.List
	}
	return r
}
