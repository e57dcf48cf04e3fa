// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile turns a requested list of publication numbers into an
// ordered, gap-free document window. One pass slices the list, fetches the
// window from the primary provider, restores requested order, and inserts
// placeholders for numbers the provider did not return.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/notify"
	"github.com/pdiddy/patent-chooser/internal/number"
	"github.com/pdiddy/patent-chooser/internal/ops"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// PageSize is the primary provider's limit for number-keyed lookups.
const PageSize = types.DefaultPageSize

// Fetcher is the primary provider contract.
type Fetcher interface {
	Fetch(ctx context.Context, query string, start, end int) (ops.Page, error)
}

// Request describes one reconciliation pass.
type Request struct {
	// Numbers is the requested list in display order.
	Numbers []string

	// Hits is the total declared by the upstream source of Numbers.
	Hits int

	// Field and Operator build the outbound query (defaults "pn", "OR").
	Field    string
	Operator string

	// QueryOrigin is the user's free-text query, if any. It is what the
	// pager displays instead of the generated number query.
	QueryOrigin string
	Datasource  string

	// Range is the 1-based display range (default "1-10").
	Range string

	// RemoteLimit is the upstream page size when Numbers is one page of a
	// larger remote result.
	RemoteLimit int

	// Loaded holds the documents on display before this pass. They are the
	// gap-fill basis when the provider call fails.
	Loaded []types.ResultDocument
}

// Result is the outcome of a pass. Provider failures are recorded in Err
// rather than returned.
type Result struct {
	Documents []types.ResultDocument
	Metadata  types.SearchMetadata
	Requested []string
	Missing   []Missing
	Query     string

	// ShortCircuit is set when no provider call was made.
	ShortCircuit bool
	NotFound     bool
	Err          error
}

// Outcome labels the pass for metrics and logs.
func (r Result) Outcome() string {
	switch {
	case r.Err != nil:
		return "error"
	case r.NotFound:
		return "not_found"
	case r.ShortCircuit:
		return "empty"
	default:
		return "complete"
	}
}

// Engine runs reconciliation passes. It holds no per-pass state, so
// overlapping passes cannot disturb each other's ordering.
type Engine struct {
	fetcher  Fetcher
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New returns an engine fetching from f.
func New(f Fetcher, n notify.Notifier, m *metrics.Metrics) *Engine {
	return &Engine{
		fetcher:  f,
		notifier: n,
		metrics:  m,
		logger:   slog.Default().With("component", "reconcile"),
	}
}

// Run executes one pass.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	if req.Field == "" {
		req.Field = "pn"
	}
	if req.Operator == "" {
		req.Operator = "OR"
	}
	if req.Range == "" {
		req.Range = DefaultRange
	}

	entries := filterBlank(req.Numbers)
	res := Result{Metadata: displayMetadata(req)}

	start, end, err := Window(req.Range, req.RemoteLimit)
	if err != nil {
		e.logger.Warn("unusable range, using default", "range", req.Range, "error", err)
		start, end, _ = Window(DefaultRange, 0)
	}
	// The primary provider answers at most PageSize numbers per call.
	if end-start > PageSize {
		end = start + PageSize
	}
	res.Requested = Slice(entries, start, end)

	if len(res.Requested) == 0 {
		res.ShortCircuit = true
		res.Documents = []types.ResultDocument{}
		if req.QueryOrigin == "" {
			e.alert("No results.", notify.KindInfo)
		}
		e.logger.Debug("empty window, provider not contacted",
			"entries", len(entries), "start", start, "end", end)
		e.metrics.ObservePass(res.Outcome(), 0)
		return res
	}

	res.Query = BuildQuery(res.Requested, req.Field, req.Operator)
	if res.Metadata.QueryOrigin == "" {
		res.Metadata.QueryOrigin = res.Query
	}

	page, err := e.fetcher.Fetch(ctx, res.Query, 1, PageSize)
	docs := page.Documents
	switch {
	case errors.Is(err, ops.ErrNotFound):
		res.NotFound = true
		docs = nil
	case err != nil:
		res.Err = fmt.Errorf("fetching window %d-%d: %w", start+1, end, err)
		e.logger.Error("list search failed", "query", res.Query, "error", err)
		e.alert("Search failed: "+err.Error(), notify.KindError)
		docs = append([]types.ResultDocument(nil), req.Loaded...)
	}

	res.Documents, res.Missing = fill(docs, res.Requested)
	e.logger.Debug("pass finished",
		"requested", len(res.Requested),
		"returned", len(docs),
		"missing", len(res.Missing))
	e.metrics.ObservePass(res.Outcome(), len(res.Missing))
	return res
}

// fill appends one placeholder per missing number and sorts the batch into
// requested order. Without gaps the batch is only reordered.
func fill(docs []types.ResultDocument, requested []string) ([]types.ResultDocument, []Missing) {
	groups := number.FullCycleGroup{}
	for _, d := range docs {
		groups.Add(d.FullCycle)
	}
	missing := detectGaps(requested, docs)

	all := make([]types.ResultDocument, 0, len(docs)+len(missing))
	all = append(all, docs...)
	placeholderRank := make(map[int]int, len(missing))
	if len(missing) > 0 {
		positions := make(map[string]int, len(requested))
		for i := len(requested) - 1; i >= 0; i-- {
			positions[requested[i]] = i
		}
		for _, m := range missing {
			placeholderRank[len(all)] = positions[m.Number]
			all = append(all, placeholder(m))
		}
	}
	return order(all, requested, groups, placeholderRank), missing
}

// displayMetadata reflects the original request, not the generated number
// query, so the pager keeps showing what the user asked for.
func displayMetadata(req Request) types.SearchMetadata {
	return types.SearchMetadata{
		Datasource:  req.Datasource,
		QueryOrigin: req.QueryOrigin,
		ResultCount: req.Hits,
		PageSize:    PageSize,
		ResultRange: req.Range,
		SearchMode:  "subsearch",
	}
}

func (e *Engine) alert(text, kind string) {
	if e.notifier != nil {
		e.notifier.UserAlert(text, kind)
	}
}
