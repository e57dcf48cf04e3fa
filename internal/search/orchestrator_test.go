// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/patent-chooser/internal/notify"
	"github.com/pdiddy/patent-chooser/internal/number"
	"github.com/pdiddy/patent-chooser/internal/ops"
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// listFetcher answers "pn=A OR pn=B" queries with one document per number,
// except numbers listed in absent. Other queries get the fixed page.
type listFetcher struct {
	mu      sync.Mutex
	page    ops.Page
	err     error
	absent  map[string]bool
	queries []string
}

func (f *listFetcher) Fetch(_ context.Context, query string, _, _ int) (ops.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return ops.Page{}, f.err
	}
	if !strings.HasPrefix(query, "pn=") && !strings.HasPrefix(query, "num=") {
		return f.page, nil
	}
	var page ops.Page
	for _, c := range strings.Split(query, " OR ") {
		_, n, _ := strings.Cut(c, "=")
		if f.absent[n] {
			continue
		}
		p, err := number.Parse(n)
		if err != nil {
			continue
		}
		// Return in reverse to exercise reordering.
		page.Documents = append([]types.ResultDocument{{Country: p.Country, DocNumber: p.Number, Kind: p.Kind}}, page.Documents...)
	}
	page.TotalHits = len(page.Documents)
	return page, nil
}

type fakeBackend struct {
	name string
	resp NormalizedResponse
	err  error
	opts []Options
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Search(_ context.Context, _ string, opts Options) (NormalizedResponse, error) {
	b.opts = append(b.opts, opts)
	return b.resp, b.err
}

type fakeNormalizer struct {
	out []string
	err error
	in  []string
}

func (n *fakeNormalizer) Normalize(_ context.Context, numbers []string) ([]string, error) {
	n.in = numbers
	return n.out, n.err
}

type fakeReviewer struct{ ranges []string }

func (r *fakeReviewer) Review(_ context.Context, rng string) error {
	r.ranges = append(r.ranges, rng)
	return nil
}

type harness struct {
	o        *Orchestrator
	fetcher  *listFetcher
	recorder *notify.Recorder
	events   *[]string
}

func newHarness(t *testing.T, backends ...Backend) harness {
	t.Helper()
	cfg := types.Config{
		Primary: types.PrimaryConfig{MaxResults: 2000, PageSize: 10},
		Datasources: map[string]types.DatasourceConfig{
			types.DatasourceGoogle: {MaxResults: 1000},
		},
	}
	bus := signal.NewBus()
	var mu sync.Mutex
	events := []string{}
	bus.Subscribe(signal.All, func(ev signal.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Name)
	})

	f := &listFetcher{absent: map[string]bool{}}
	rec := &notify.Recorder{}
	bm := map[string]Backend{}
	for _, b := range backends {
		bm[b.Name()] = b
	}
	o := NewOrchestrator(cfg, Deps{
		Primary:  f,
		Engine:   reconcile.New(f, rec, nil),
		Backends: bm,
		Bus:      bus,
		Notifier: rec,
	})
	return harness{o: o, fetcher: f, recorder: rec, events: &events}
}

func (h harness) texts() []string {
	var out []string
	for _, m := range h.recorder.Messages() {
		out = append(out, m.Text)
	}
	return out
}

func docIDs(docs []types.ResultDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

func TestPerformSearchPrimary(t *testing.T) {
	h := newHarness(t)
	h.fetcher.page = ops.Page{
		TotalHits: 2500,
		Documents: []types.ResultDocument{{Country: "EP", DocNumber: "1000000", Kind: "A1"}},
	}

	err := h.o.PerformSearch(context.Background(), Request{Query: "ti=robot", Datasource: types.DatasourceOPS})
	require.NoError(t, err)

	assert.Equal(t, []string{signal.SearchBefore, signal.SearchSuccess, signal.QueryRecord, signal.ResultsReady}, *h.events)
	st := h.o.State()
	assert.Equal(t, 2500, st.Metadata.ResultCount)
	assert.Equal(t, "1-10", st.Metadata.ResultRange)
	assert.Equal(t, "ti=robot", st.Metadata.Query)
	assert.Equal(t, []string{"EP1000000A1"}, docIDs(st.Documents))
	require.Len(t, h.texts(), 1)
	assert.Contains(t, h.texts()[0], "Total hits: 2500. The first 2000 hits are accessible from ops.")
}

func TestPerformSearchPrimaryNotFound(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = ops.ErrNotFound

	err := h.o.PerformSearch(context.Background(), Request{Query: "ti=nothing", Datasource: types.DatasourceOPS})
	require.NoError(t, err)

	assert.Equal(t, []string{signal.SearchBefore, signal.SearchFailure, signal.ResultsReady}, *h.events)
	st := h.o.State()
	assert.Equal(t, 0, st.Metadata.ResultCount)
	assert.Empty(t, st.Error)
	assert.Empty(t, st.Documents)
	assert.Equal(t, []string{`No results for "ti=nothing" at ops.`}, h.texts())
}

func TestPerformSearchPrimaryFailure(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("connection refused")

	err := h.o.PerformSearch(context.Background(), Request{Query: "ti=robot", Datasource: types.DatasourceOPS})
	require.NoError(t, err)

	assert.Equal(t, []string{signal.SearchBefore, signal.SearchFailure, signal.ResultsReady}, *h.events)
	assert.Equal(t, "connection refused", h.o.State().Error)
}

func TestPerformSearchEmptyQueryIsNoop(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.o.PerformSearch(context.Background(), Request{Datasource: types.DatasourceOPS}))
	assert.Empty(t, *h.events)
	assert.Empty(t, h.fetcher.queries)
}

func TestPerformSearchUnknownDatasource(t *testing.T) {
	h := newHarness(t)

	err := h.o.PerformSearch(context.Background(), Request{Query: "x", Datasource: "epoline"})
	assert.ErrorIs(t, err, ErrUnknownDatasource)
	assert.Equal(t, []string{`Search provider "epoline" not implemented.`}, h.texts())
}

func TestPerformSearchGenericTwoStage(t *testing.T) {
	backend := &fakeBackend{name: types.DatasourceDEPATISnet, resp: NormalizedResponse{
		Numbers:  []string{"DE102005012345A1", "EP1000000A1", "US7654321B2"},
		Total:    3,
		Limit:    250,
		Message:  "Query was rewritten.",
		Keywords: []string{"robot"},
	}}
	h := newHarness(t, backend)

	err := h.o.PerformSearch(context.Background(), Request{Query: "robot", Datasource: types.DatasourceDEPATISnet, Range: "1-10"})
	require.NoError(t, err)

	assert.Equal(t, []string{signal.SearchBefore, signal.SearchSuccess, signal.QueryRecord, signal.ResultsReady}, *h.events)
	assert.Equal(t, []string{"pn=DE102005012345A1 OR pn=EP1000000A1 OR pn=US7654321B2"}, h.fetcher.queries)

	st := h.o.State()
	assert.Equal(t, []string{"DE102005012345A1", "EP1000000A1", "US7654321B2"}, docIDs(st.Documents))
	assert.Equal(t, "robot", st.Metadata.QueryOrigin)
	assert.Equal(t, 3, st.Metadata.ResultCount)
	assert.Equal(t, []string{"robot"}, st.Metadata.Keywords)
	assert.Equal(t, types.DatasourceDEPATISnet, st.Metadata.Datasource)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "Query was rewritten.", st.Messages[0].Text)
	assert.Equal(t, notify.KindWarning, st.Messages[0].Kind)
	assert.Equal(t, []Options{{Range: "1-10"}}, backend.opts)
}

func TestPerformSearchGenericUpstreamMessageAfterListFailure(t *testing.T) {
	backend := &fakeBackend{name: types.DatasourceDEPATISnet, resp: NormalizedResponse{
		Numbers: []string{"EP1000000A1"},
		Total:   1,
		Limit:   250,
		Message: "Query was rewritten.",
	}}
	h := newHarness(t, backend)
	h.fetcher.err = errors.New("primary down")

	require.NoError(t, h.o.PerformSearch(context.Background(), Request{Query: "robot", Datasource: types.DatasourceDEPATISnet}))

	texts := h.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Search failed: primary down", texts[0])
	assert.Equal(t, "Query was rewritten.", texts[1])
}

func TestPerformSearchGenericPlaceholders(t *testing.T) {
	backend := &fakeBackend{name: types.DatasourceIFIClaims, resp: NormalizedResponse{
		Numbers: []string{"EP1000000A1", "US9999999B1"},
		Total:   2,
		Limit:   100,
	}}
	h := newHarness(t, backend)
	h.fetcher.absent["US9999999B1"] = true

	require.NoError(t, h.o.PerformSearch(context.Background(), Request{Query: "robot", Datasource: types.DatasourceIFIClaims}))

	st := h.o.State()
	assert.Equal(t, []string{"EP1000000A1", "US9999999B1"}, docIDs(st.Documents))
	assert.True(t, st.Documents[1].Placeholder)
	require.Len(t, st.Missing, 1)
	assert.Equal(t, "US9999999B1", st.Missing[0].Number)
}

func TestPerformSearchGenericNotFound(t *testing.T) {
	backend := &fakeBackend{name: types.DatasourceFulltextPro, err: ops.ErrNotFound}
	h := newHarness(t, backend)

	require.NoError(t, h.o.PerformSearch(context.Background(), Request{Query: "nothing", Datasource: types.DatasourceFulltextPro}))

	assert.Equal(t, []string{signal.SearchBefore, signal.SearchFailure, signal.ResultsReady}, *h.events)
	assert.Empty(t, h.fetcher.queries)
	assert.Equal(t, 0, h.o.State().Metadata.ResultCount)
}

func TestPerformSearchUnknownHitCount(t *testing.T) {
	backend := &fakeBackend{name: types.DatasourceGoogle, resp: NormalizedResponse{
		Numbers: []string{"EP1000000A1"},
		Total:   -1,
		Limit:   100,
	}}
	h := newHarness(t, backend)

	require.NoError(t, h.o.PerformSearch(context.Background(), Request{Query: "robot", Datasource: types.DatasourceGoogle}))

	assert.Equal(t, 1000, h.o.State().Metadata.ResultCount)
	assert.Contains(t, h.texts(), "Result count unknown at google. Assuming 1000 to make paging work.")
}

func TestPerformSearchReviewMode(t *testing.T) {
	h := newHarness(t)

	on := true
	err := h.o.PerformSearch(context.Background(), Request{Datasource: types.DatasourceReview, ReviewMode: &on})
	assert.ErrorIs(t, err, ErrReviewUnavailable)

	r := &fakeReviewer{}
	h.o.SetReviewer(r)
	require.NoError(t, h.o.PerformSearch(context.Background(), Request{Datasource: types.DatasourceReview, Range: "11-20"}))
	assert.Equal(t, []string{"11-20"}, r.ranges)
	assert.Empty(t, h.fetcher.queries)
}

func TestPerformNumberlistSearch(t *testing.T) {
	h := newHarness(t)
	norm := &fakeNormalizer{out: []string{"WO2003049775A2", "EP1000000A1"}}
	h.o.normalizer = norm

	err := h.o.PerformNumberlistSearch(context.Background(), "# pasted\nWO03049775A2,\nEP1000000A1", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"WO03049775A2", "EP1000000A1"}, norm.in)
	assert.Equal(t, []string{"pn=WO2003049775A2 OR pn=EP1000000A1"}, h.fetcher.queries)
	st := h.o.State()
	assert.Equal(t, []string{"WO2003049775A2", "EP1000000A1"}, docIDs(st.Documents))
	assert.Equal(t, 2, st.Metadata.ResultCount)
	assert.Equal(t, []string{signal.ResultsReady}, *h.events)
}

func TestPerformNumberlistSearchNormalizerFailure(t *testing.T) {
	h := newHarness(t)
	h.o.normalizer = &fakeNormalizer{err: errors.New("down")}

	require.NoError(t, h.o.PerformNumberlistSearch(context.Background(), "num=EP1000000A1", ""))
	assert.Equal(t, []string{"num=EP1000000A1"}, h.fetcher.queries)
}

func TestPerformNumberlistSearchEmpty(t *testing.T) {
	h := newHarness(t)

	err := h.o.PerformNumberlistSearch(context.Background(), "// nothing here\n\n", "")
	assert.ErrorIs(t, err, ErrEmptyNumberlist)
	assert.Equal(t, []notify.Message{{Text: EmptyNumberlistMessage, Kind: notify.KindWarning, Icon: "icon-align-justify"}}, h.recorder.Messages())
	assert.Empty(t, *h.events)
}

func TestListSearchReviewSetsReviewMode(t *testing.T) {
	h := newHarness(t)

	st := h.o.ListSearch(context.Background(), reconcile.Request{
		Numbers:    []string{"EP1000000A1"},
		Hits:       1,
		Datasource: types.DatasourceReview,
	})

	assert.True(t, st.Metadata.ReviewMode)
	assert.Equal(t, types.DatasourceReview, st.Metadata.Datasource)
	assert.Equal(t, st, h.o.State())
}

func TestSendQueryIgnoresEmpty(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.o.SendQuery(context.Background(), "", ""))
	assert.Empty(t, *h.events)

	h.fetcher.page = ops.Page{TotalHits: 0}
	require.NoError(t, h.o.SendQuery(context.Background(), "pa=acme", "1-10"))
	assert.Equal(t, []string{"pa=acme"}, h.fetcher.queries)
}
