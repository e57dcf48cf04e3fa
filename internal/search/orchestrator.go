// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search routes search actions to the primary provider or to an
// auxiliary backend, runs list reconciliation for number-list results, and
// keeps the per-session result state that renderers read.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/pdiddy/patent-chooser/internal/notify"
	"github.com/pdiddy/patent-chooser/internal/ops"
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// ErrReviewUnavailable is returned when review mode is requested without
// an active basket.
var ErrReviewUnavailable = errors.New("review mode requires an active basket")

// unknownHitsAssumed is the hit count assumed when a provider reports none.
const unknownHitsAssumed = 1000

// Fetcher is the primary provider contract.
type Fetcher interface {
	Fetch(ctx context.Context, query string, start, end int) (ops.Page, error)
}

// Normalizer rewrites publication numbers into canonical form.
type Normalizer interface {
	Normalize(ctx context.Context, numbers []string) ([]string, error)
}

// Reviewer runs a list search over the active basket's numbers.
type Reviewer interface {
	Review(ctx context.Context, rng string) error
}

// State is the result state published after every search. It is replaced
// as a whole on every commit; slices are never mutated after publication.
type State struct {
	Metadata  types.SearchMetadata   `json:"metadata"`
	Documents []types.ResultDocument `json:"documents"`
	Missing   []reconcile.Missing    `json:"missing,omitempty"`

	// Messages are the provider messages that belong to this result.
	Messages []notify.Message `json:"messages,omitempty"`

	// Error is the provider failure reported for this result, if any.
	Error string `json:"error,omitempty"`
}

// Request is one top-level search action.
type Request struct {
	Query      string `json:"query"`
	Datasource string `json:"datasource"`
	Range      string `json:"range,omitempty"`
	Flavor     string `json:"flavor,omitempty"`
	Keywords   string `json:"keywords,omitempty"`

	// ReviewMode switches review mode on or off; nil keeps the current mode.
	ReviewMode *bool `json:"reviewmode,omitempty"`
}

// Orchestrator is the search entry point of a session.
type Orchestrator struct {
	cfg        types.Config
	primary    Fetcher
	engine     *reconcile.Engine
	backends   map[string]Backend
	normalizer Normalizer
	bus        *signal.Bus
	notifier   notify.Notifier
	logger     *slog.Logger

	// mu serializes searches so one pass commits before the next starts.
	mu sync.Mutex

	stateMu  sync.RWMutex
	state    State
	reviewer Reviewer
}

// Deps are the collaborators of an Orchestrator. Normalizer may be nil.
type Deps struct {
	Primary    Fetcher
	Engine     *reconcile.Engine
	Backends   map[string]Backend
	Normalizer Normalizer
	Bus        *signal.Bus
	Notifier   notify.Notifier
}

// NewOrchestrator returns an orchestrator with default metadata.
func NewOrchestrator(cfg types.Config, d Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		primary:    d.Primary,
		engine:     d.Engine,
		backends:   d.Backends,
		normalizer: d.Normalizer,
		bus:        d.Bus,
		notifier:   d.Notifier,
		logger:     slog.Default().With("component", "search"),
	}
	if o.backends == nil {
		o.backends = map[string]Backend{}
	}
	o.state.Metadata.Datasource = types.DatasourceOPS
	o.state.Metadata.ResetDefaults(cfg.Primary.PageSize)
	o.state.Documents = []types.ResultDocument{}
	return o
}

// State returns the current result state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

// Documents returns the currently loaded documents.
func (o *Orchestrator) Documents() []types.ResultDocument {
	return o.State().Documents
}

// SetReviewer installs the basket used for review mode; nil removes it.
func (o *Orchestrator) SetReviewer(r Reviewer) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	o.reviewer = r
}

// SendQuery runs query against the current datasource. Empty queries are
// ignored.
func (o *Orchestrator) SendQuery(ctx context.Context, query string, rng string) error {
	if query == "" {
		return nil
	}
	return o.PerformSearch(ctx, Request{Query: query, Datasource: o.State().Metadata.Datasource, Range: rng})
}

// PerformSearch runs one search action. Provider failures are reported via
// the notifier and the result state; the returned error is reserved for
// sequencing problems such as an unknown datasource.
func (o *Orchestrator) PerformSearch(ctx context.Context, req Request) error {
	if req.Datasource == "" {
		req.Datasource = o.State().Metadata.Datasource
	}

	reviewMode, reviewer := o.prepare(req)
	if reviewMode {
		if reviewer == nil {
			return ErrReviewUnavailable
		}
		return reviewer.Review(ctx, req.Range)
	}

	if req.Query == "" {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	info := types.SearchInfo{Datasource: req.Datasource, Query: req.Query, Flavor: req.Flavor}
	if req.Datasource == types.DatasourceOPS {
		o.primarySearch(ctx, req, info)
		return nil
	}
	backend, ok := o.backends[req.Datasource]
	if !ok {
		o.notify(fmt.Sprintf("Search provider %q not implemented.", req.Datasource), notify.Options{Type: notify.KindError, Icon: "icon-search"})
		return fmt.Errorf("%w: %s", ErrUnknownDatasource, req.Datasource)
	}
	o.genericSearch(ctx, backend, req, info)
	return nil
}

// prepare resets the metadata for a new top-level search and resolves
// review mode.
func (o *Orchestrator) prepare(req Request) (bool, Reviewer) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	md := o.state.Metadata
	md.Datasource = req.Datasource
	md.ResetDefaults(o.cfg.Primary.PageSize)
	if req.ReviewMode != nil {
		md.ReviewMode = *req.ReviewMode
	}
	o.state.Metadata = md
	return md.ReviewMode, o.reviewer
}

func (o *Orchestrator) primarySearch(ctx context.Context, req Request, info types.SearchInfo) {
	rng := req.Range
	if rng == "" {
		rng = "1-" + strconv.Itoa(o.pageSize())
	}
	info.Range = rng
	o.publish(signal.SearchBefore, info)

	start, end, err := reconcile.Window(rng, 0)
	if err != nil {
		o.logger.Warn("unusable range, using default", "range", rng, "error", err)
		start, end = 0, o.pageSize()
	}

	md := o.State().Metadata
	md.Query = req.Query
	md.ResultRange = rng

	page, err := o.primary.Fetch(ctx, req.Query, start+1, end)
	if err != nil {
		o.publish(signal.SearchFailure, info)
		next := State{Metadata: md, Documents: []types.ResultDocument{}}
		if errors.Is(err, ops.ErrNotFound) {
			md.ResultCount = 0
			next.Metadata = md
			o.alert(noResultsMessage(req.Datasource, req.Query))
		} else {
			o.logger.Error("primary search failed", "query", req.Query, "error", err)
			next.Error = err.Error()
			o.alert(notify.Message{Text: "Search failed: " + err.Error(), Kind: notify.KindError})
		}
		o.commit(next)
		o.publish(signal.ResultsReady, next)
		return
	}

	o.publish(signal.SearchSuccess, info)

	hits := page.TotalHits
	md.ResultCount = hits
	next := State{Metadata: md, Documents: page.Documents}
	if next.Documents == nil {
		next.Documents = []types.ResultDocument{}
	}
	if hits == 0 {
		o.alert(noResultsMessage(req.Datasource, req.Query))
	}
	next.Messages = hitsWarnings(req.Datasource, hits, o.cfg.MaxResults(req.Datasource), false)
	o.alertAll(next.Messages)
	o.commit(next)

	info.ResultCount = hits
	o.publish(signal.QueryRecord, info)
	o.publish(signal.ResultsReady, next)
}

// genericSearch is the two-stage protocol for auxiliary providers: fetch a
// page of numbers, then reconcile them against the primary provider.
func (o *Orchestrator) genericSearch(ctx context.Context, backend Backend, req Request, info types.SearchInfo) {
	info.Range = req.Range
	o.publish(signal.SearchBefore, info)

	o.stateMu.Lock()
	o.state.Metadata.QueryOrigin = req.Query
	o.stateMu.Unlock()

	resp, err := backend.Search(ctx, req.Query, Options{Range: req.Range, Flavor: req.Flavor, Keywords: req.Keywords})
	if err != nil {
		o.publish(signal.SearchFailure, info)
		md := o.State().Metadata
		md.ResultCount = 0
		next := State{Metadata: md, Documents: []types.ResultDocument{}}
		if errors.Is(err, ops.ErrNotFound) {
			o.alert(noResultsMessage(req.Datasource, req.Query))
		} else {
			o.logger.Error("datasource search failed", "datasource", backend.Name(), "query", req.Query, "error", err)
			next.Error = err.Error()
			o.alert(notify.Message{Text: "Search failed: " + err.Error(), Kind: notify.KindError})
		}
		o.commit(next)
		o.publish(signal.ResultsReady, next)
		return
	}

	o.publish(signal.SearchSuccess, info)

	upstream := datasourceMessages(resp)

	hits := resp.Total
	unknown := hits < 0
	if unknown {
		hits = unknownHitsAssumed
	}
	info.ResultCount = hits
	o.publish(signal.QueryRecord, info)

	lr := reconcile.Request{
		Numbers:     resp.Numbers,
		Hits:        hits,
		Field:       "pn",
		Operator:    "OR",
		QueryOrigin: req.Query,
		Datasource:  req.Datasource,
		Range:       req.Range,
		RemoteLimit: resp.Limit,
	}
	res := o.runList(ctx, lr)
	res.Metadata.Keywords = resp.Keywords

	// Stage 1 messages are alerted after stage 2 so they are not buried
	// by its alerts.
	o.alertAll(upstream)
	extra := append([]notify.Message(nil), upstream...)
	_, end, werr := reconcile.Window(lr.Range, 0)
	if werr != nil {
		end = reconcile.PageSize
	}
	family := familyRemovalNotice(resp, pageContext{
		LocalHits:   len(res.Requested),
		LocalLimit:  reconcile.PageSize,
		RangeEnd:    end,
		RemoteLimit: resp.Limit,
		ResultCount: hits,
	})
	warnings := hitsWarnings(req.Datasource, hits, o.cfg.MaxResults(req.Datasource), unknown)
	o.alertAll(family)
	o.alertAll(warnings)
	extra = append(extra, family...)
	extra = append(extra, warnings...)

	o.finishList(res, extra)
}

// PerformNumberlistSearch parses raw, normalizes the numbers when a
// normalizer is configured, and reconciles them against the primary
// provider.
func (o *Orchestrator) PerformNumberlistSearch(ctx context.Context, raw string, rng string) error {
	nl := ParseNumberlist(raw)
	if len(nl.Numbers) == 0 {
		o.notify(EmptyNumberlistMessage, notify.Options{Type: notify.KindWarning, Icon: "icon-align-justify"})
		return ErrEmptyNumberlist
	}

	off := false
	o.prepare(Request{Datasource: types.DatasourceOPS, ReviewMode: &off})

	numbers := nl.Numbers
	if o.normalizer != nil {
		normalized, err := o.normalizer.Normalize(ctx, nl.Numbers)
		switch {
		case err != nil:
			o.logger.Warn("number normalization failed, using numbers as entered", "error", err)
		case len(normalized) > 0:
			numbers = normalized
		}
	}

	o.ListSearch(ctx, reconcile.Request{
		Numbers:    numbers,
		Hits:       len(numbers),
		Field:      nl.Field,
		Operator:   "OR",
		Datasource: types.DatasourceOPS,
		Range:      rng,
	})
	return nil
}

// ListSearch runs one reconciliation pass, commits its result, and
// publishes results:ready. Signal handlers run while the pass is held, so
// they must not start another search on the same orchestrator.
func (o *Orchestrator) ListSearch(ctx context.Context, req reconcile.Request) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finishList(o.runList(ctx, req), nil)
}

func (o *Orchestrator) runList(ctx context.Context, req reconcile.Request) reconcile.Result {
	req.Loaded = o.State().Documents
	return o.engine.Run(ctx, req)
}

func (o *Orchestrator) finishList(res reconcile.Result, messages []notify.Message) State {
	current := o.State().Metadata
	md := res.Metadata
	md.Query = current.Query
	md.ReviewMode = current.ReviewMode || res.Metadata.Datasource == types.DatasourceReview
	if md.Datasource == "" {
		md.Datasource = current.Datasource
	}

	next := State{
		Metadata:  md,
		Documents: res.Documents,
		Missing:   res.Missing,
		Messages:  messages,
	}
	if next.Documents == nil {
		next.Documents = []types.ResultDocument{}
	}
	if res.Err != nil {
		next.Error = res.Err.Error()
	}
	o.commit(next)
	o.publish(signal.ResultsReady, next)
	return next
}

func (o *Orchestrator) commit(s State) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	o.state = s
}

func (o *Orchestrator) pageSize() int {
	if o.cfg.Primary.PageSize > 0 {
		return o.cfg.Primary.PageSize
	}
	return types.DefaultPageSize
}

func (o *Orchestrator) publish(name string, payload any) {
	if o.bus != nil {
		o.bus.Publish(name, payload)
	}
}

func (o *Orchestrator) notify(text string, opts notify.Options) {
	if o.notifier != nil {
		o.notifier.Notify(text, opts)
	}
}

func (o *Orchestrator) alert(m notify.Message) {
	if o.notifier != nil {
		o.notifier.UserAlert(m.Text, m.Kind)
	}
}

func (o *Orchestrator) alertAll(ms []notify.Message) {
	for _, m := range ms {
		o.alert(m)
	}
}
