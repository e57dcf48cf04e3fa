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
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// patentsViewSearchBase is the PatentsView patent search endpoint. Declared
// as a var so tests can substitute an httptest server.
var patentsViewSearchBase = "https://search.patentsview.org/api/v1/patent/"

// patentsViewPerPage is the remote page size requested from PatentsView.
const patentsViewPerPage = 100

// PatentsViewBackend queries the PatentsView API for US grants.
type PatentsViewBackend struct {
	Client    *http.Client
	BaseURL   string
	APIKey    string
	UserAgent string
	Metrics   *metrics.Metrics
}

func newPatentsViewBackend(cfg types.Config, client *http.Client, m *metrics.Metrics) Backend {
	ds := cfg.Datasources[types.DatasourcePatentsView]
	return &PatentsViewBackend{
		Client:    client,
		BaseURL:   ds.BaseURL,
		APIKey:    ds.APIKey,
		UserAgent: cfg.HTTP.UserAgent,
		Metrics:   m,
	}
}

// Name returns the datasource name.
func (b *PatentsViewBackend) Name() string { return types.DatasourcePatentsView }

// Search translates the expression into a PatentsView query and returns
// the page of US publication numbers containing opts.Range.
func (b *PatentsViewBackend) Search(ctx context.Context, query string, opts Options) (NormalizedResponse, error) {
	q := buildPatentsViewQuery(parsePatentsViewExpression(query))
	if q == "" {
		return NormalizedResponse{}, fmt.Errorf("empty PatentsView query")
	}

	start, _, err := reconcile.Window(opts.Range, 0)
	if err != nil {
		start = 0
	}
	page := start/patentsViewPerPage + 1

	params := url.Values{
		"q": {q},
		"f": {`["patent_id","patent_title","patent_date"]`},
		"o": {fmt.Sprintf(`{"size":%d,"page":%d}`, patentsViewPerPage, page)},
	}
	base := b.BaseURL
	if base == "" {
		base = patentsViewSearchBase
	}
	reqURL := base + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return NormalizedResponse{}, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("X-Api-Key", b.APIKey)
	}

	began := time.Now()
	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("PatentsView API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			return NormalizedResponse{}, fmt.Errorf("PatentsView rate limit exceeded, retry after %s seconds", retryAfter)
		}
		return NormalizedResponse{}, fmt.Errorf("PatentsView rate limit exceeded (HTTP 429)")
	}
	if resp.StatusCode == http.StatusNotFound {
		b.Metrics.ObserveProvider(b.Name(), "not_found", time.Since(began).Seconds())
		return NormalizedResponse{}, ops.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("PatentsView API returned HTTP %d", resp.StatusCode)
	}

	var pvr patentsViewResponse
	if err := json.NewDecoder(resp.Body).Decode(&pvr); err != nil {
		b.Metrics.ObserveProvider(b.Name(), "error", time.Since(began).Seconds())
		return NormalizedResponse{}, fmt.Errorf("parsing PatentsView response: %w", err)
	}
	b.Metrics.ObserveProvider(b.Name(), "ok", time.Since(began).Seconds())

	out := NormalizedResponse{
		Total:  pvr.Total,
		Limit:  patentsViewPerPage,
		Offset: (page - 1) * patentsViewPerPage,
	}
	for _, p := range pvr.Patents {
		if p.PatentID != "" {
			out.Numbers = append(out.Numbers, "US"+p.PatentID)
		}
	}
	return out, nil
}

// patentsViewQuery is the structured form of a PatentsView expression.
type patentsViewQuery struct {
	FreeText string
	Inventor string
	DateFrom time.Time
	DateTo   time.Time
}

// parsePatentsViewExpression splits "inventor=Smith from=2020-01-01 robot arm"
// into structured fields. Unrecognized words form the free text.
func parsePatentsViewExpression(expr string) patentsViewQuery {
	var q patentsViewQuery
	var text []string
	for _, word := range strings.Fields(expr) {
		key, value, ok := strings.Cut(word, "=")
		if !ok {
			text = append(text, word)
			continue
		}
		switch strings.ToLower(key) {
		case "inventor", "in":
			q.Inventor = value
		case "from":
			if t, err := time.Parse("2006-01-02", value); err == nil {
				q.DateFrom = t
			}
		case "to":
			if t, err := time.Parse("2006-01-02", value); err == nil {
				q.DateTo = t
			}
		default:
			text = append(text, word)
		}
	}
	q.FreeText = strings.Join(text, " ")
	return q
}

// buildPatentsViewQuery constructs the JSON query parameter from structured
// fields using PatentsView operators.
func buildPatentsViewQuery(q patentsViewQuery) string {
	var conditions []string

	if q.FreeText != "" {
		conditions = append(conditions,
			fmt.Sprintf(`{"_or":[{"_text_any":{"patent_title":"%s"}},{"_text_any":{"patent_abstract":"%s"}}]}`,
				escapeJSON(q.FreeText), escapeJSON(q.FreeText)))
	}

	if q.Inventor != "" {
		conditions = append(conditions,
			fmt.Sprintf(`{"_contains":{"inventors.inventor_name_last":"%s"}}`,
				escapeJSON(q.Inventor)))
	}

	if !q.DateFrom.IsZero() {
		conditions = append(conditions,
			fmt.Sprintf(`{"_gte":{"patent_date":"%s"}}`, q.DateFrom.Format("2006-01-02")))
	}
	if !q.DateTo.IsZero() {
		conditions = append(conditions,
			fmt.Sprintf(`{"_lte":{"patent_date":"%s"}}`, q.DateTo.Format("2006-01-02")))
	}

	if len(conditions) == 0 {
		return ""
	}
	if len(conditions) == 1 {
		return conditions[0]
	}
	return fmt.Sprintf(`{"_and":[%s]}`, strings.Join(conditions, ","))
}

// escapeJSON escapes a string for safe inclusion in a JSON string value.
func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// PatentsView API JSON structures.
type patentsViewResponse struct {
	Patents []patentsViewPatent `json:"patents"`
	Count   int                 `json:"count"`
	Total   int                 `json:"total_hits"`
}

type patentsViewPatent struct {
	PatentID    string `json:"patent_id"`
	PatentTitle string `json:"patent_title"`
	PatentDate  string `json:"patent_date"`
}
