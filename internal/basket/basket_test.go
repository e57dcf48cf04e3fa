// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package basket

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(types.BasketConfig{DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type staticDocs []types.ResultDocument

func (d staticDocs) Documents() []types.ResultDocument { return d }

type recordingLister struct {
	mu   sync.Mutex
	reqs []reconcile.Request
}

func (l *recordingLister) ListSearch(_ context.Context, req reconcile.Request) search.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, req)
	return search.State{}
}

type harness struct {
	basket *Basket
	store  *SQLStore
	bus    *signal.Bus
	lister *recordingLister
	m      *metrics.Metrics

	mu     sync.Mutex
	events []string
}

func newHarness(t *testing.T, docs ...types.ResultDocument) *harness {
	t.Helper()
	h := &harness{
		store:  newTestStore(t),
		bus:    signal.NewBus(),
		lister: &recordingLister{},
		m:      metrics.New(prometheus.NewRegistry()),
	}
	h.bus.Subscribe(signal.All, func(ev signal.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev.Name)
	})
	h.basket = New("prior-art", Deps{
		Store:     h.store,
		Documents: staticDocs(docs),
		Lister:    h.lister,
		Bus:       h.bus,
		Metrics:   h.m,
	})
	return h
}

func (h *harness) takeEvents() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.events
	h.events = nil
	return out
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestAddTwiceKeepsOneEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.basket.Add(ctx, "EP1000000A1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{signal.Change, signal.ChangeAdd}, h.takeEvents())

	second, err := h.basket.Add(ctx, " EP1000000A1 ", false)
	require.NoError(t, err)
	assert.Equal(t, []string{signal.Change}, h.takeEvents())

	assert.Equal(t, first.ID, second.ID)
	stored, err := h.store.Entries(ctx, "prior-art")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, []string{"EP1000000A1"}, h.basket.GetNumbers(false))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.BasketMutations.WithLabelValues("add")))
}

func TestAddEmptyIsNoop(t *testing.T) {
	h := newHarness(t)
	e, err := h.basket.Add(context.Background(), "   ", false)
	require.NoError(t, err)
	assert.Empty(t, e.ID)
	assert.True(t, h.basket.Empty())
	assert.Empty(t, h.takeEvents())
}

func TestAddTitleFromLoadedDocuments(t *testing.T) {
	h := newHarness(t,
		types.ResultDocument{Country: "EP", DocNumber: "1000000", Kind: "A1", Title: "Robot arm"},
		types.ResultDocument{Country: "US", DocNumber: "7654321", Kind: "B2", Title: "Gripper"},
	)
	e, err := h.basket.Add(context.Background(), "US7654321B2", false)
	require.NoError(t, err)
	assert.Equal(t, "Gripper", e.Title)

	e, err = h.basket.Add(context.Background(), "US7654321", false)
	require.NoError(t, err)
	assert.Empty(t, e.Title, "title lookup is an exact number match")
}

func TestAddMultiPublishesOneChange(t *testing.T) {
	h := newHarness(t)
	err := h.basket.AddMulti(context.Background(), []string{"EP1000000A1", "", "US7654321B2", "EP1000000A1"})
	require.NoError(t, err)

	assert.Equal(t, []string{signal.Change}, h.takeEvents())
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2"}, h.basket.GetNumbers(false))
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.basket.AddMulti(ctx, []string{"EP1000000A1", "US7654321B2"}))
	h.takeEvents()

	require.NoError(t, h.basket.Remove(ctx, "EP1000000A1"))
	assert.Equal(t, []string{signal.ChangeRemove, signal.Change}, h.takeEvents())
	assert.False(t, h.basket.Exists("EP1000000A1"))

	stored, err := h.store.Entries(ctx, "prior-art")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "US7654321B2", stored[0].Number)

	require.NoError(t, h.basket.Remove(ctx, "EP1000000A1"))
	assert.Empty(t, h.takeEvents(), "removing an absent number is a no-op")
}

func TestGetNumbersHonorDismiss(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.basket.AddMulti(ctx, []string{"EP1000000A1", "US7654321B2", "DE102005012345A1"}))

	_, err := h.basket.Rate(ctx, "US7654321B2", nil, boolPtr(true))
	require.NoError(t, err)
	_, err = h.basket.Rate(ctx, "DE102005012345A1", intPtr(2), boolPtr(false))
	require.NoError(t, err)

	assert.Equal(t, []string{"EP1000000A1", "DE102005012345A1"}, h.basket.GetNumbers(true))
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2", "DE102005012345A1"}, h.basket.GetNumbers(false))
}

func TestGetNumbersInvalidatedOnChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.basket.Add(ctx, "EP1000000A1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"EP1000000A1"}, h.basket.GetNumbers(true))

	var seen [][]string
	h.bus.Subscribe(signal.Change, func(signal.Event) {
		seen = append(seen, h.basket.GetNumbers(true))
	})

	_, err = h.basket.Add(ctx, "US7654321B2", false)
	require.NoError(t, err)
	require.NoError(t, h.basket.Remove(ctx, "EP1000000A1"))

	require.Len(t, seen, 2)
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2"}, seen[0])
	assert.Equal(t, []string{"US7654321B2"}, seen[1])
}

func TestGetNumbersReturnsCopy(t *testing.T) {
	h := newHarness(t)
	_, err := h.basket.Add(context.Background(), "EP1000000A1", false)
	require.NoError(t, err)

	got := h.basket.GetNumbers(false)
	got[0] = "mutated"
	assert.Equal(t, []string{"EP1000000A1"}, h.basket.GetNumbers(false))
}

func TestAddResavesVanishedEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e, err := h.basket.Add(ctx, "EP1000000A1", false)
	require.NoError(t, err)

	require.NoError(t, h.store.Destroy(ctx, "prior-art", e.ID))

	again, err := h.basket.Add(ctx, "EP1000000A1", false)
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.ID)

	stored, err := h.store.Fetch(ctx, "prior-art", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "EP1000000A1", stored.Number)
}

func TestRefreshLoadsAndResaves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.basket.AddMulti(ctx, []string{"EP1000000A1", "US7654321B2"}))
	e, _ := h.basket.EntryByNumber("US7654321B2")
	require.NoError(t, h.store.Destroy(ctx, "prior-art", e.ID))
	h.takeEvents()

	require.NoError(t, h.basket.Refresh(ctx))
	assert.Equal(t, []string{signal.Change}, h.takeEvents())
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2"}, h.basket.GetNumbers(false))

	stored, err := h.store.Entries(ctx, "prior-art")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// A fresh basket for the same project sees the stored entries.
	other := New("prior-art", Deps{Store: h.store})
	require.NoError(t, other.Refresh(ctx))
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2"}, other.GetNumbers(false))
}

func TestRate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.basket.MarkSeen(ctx, "EP1000000A1"))
	assert.True(t, h.basket.SeenTwice("EP1000000A1"))
	h.takeEvents()

	e, err := h.basket.Rate(ctx, "EP1000000A1", intPtr(3), boolPtr(false))
	require.NoError(t, err)
	assert.Equal(t, 3, e.ScoreValue())
	assert.False(t, e.Seen)
	assert.Equal(t, []string{signal.Change, signal.ChangeRate}, h.takeEvents())

	stored, err := h.store.Fetch(ctx, "prior-art", e.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 3, *stored.Score)
	require.NotNil(t, stored.Dismiss)
	assert.False(t, *stored.Dismiss)
	assert.False(t, stored.Seen)

	_, err = h.basket.Rate(ctx, "EP1000000A1", intPtr(4), nil)
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestMarkSeenSkipsExisting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.basket.Rate(ctx, "EP1000000A1", intPtr(1), nil)
	require.NoError(t, err)

	require.NoError(t, h.basket.MarkSeen(ctx, "EP1000000A1"))
	assert.False(t, h.basket.SeenTwice("EP1000000A1"))
	assert.False(t, h.basket.SeenTwice("US7654321B2"))
}

func TestReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.basket.AddMulti(ctx, []string{"EP1000000A1", "US7654321B2", "DE102005012345A1"}))
	_, err := h.basket.Rate(ctx, "US7654321B2", nil, boolPtr(true))
	require.NoError(t, err)

	require.NoError(t, h.basket.Review(ctx, "1-10"))
	require.Len(t, h.lister.reqs, 1)
	req := h.lister.reqs[0]
	assert.Equal(t, []string{"EP1000000A1", "DE102005012345A1"}, req.Numbers)
	assert.Equal(t, 2, req.Hits)
	assert.Equal(t, "pn", req.Field)
	assert.Equal(t, "OR", req.Operator)
	assert.Equal(t, types.DatasourceReview, req.Datasource)
	assert.Equal(t, "1-10", req.Range)
}

func TestReviewWithoutLister(t *testing.T) {
	b := New("p", Deps{Store: newTestStore(t)})
	assert.Error(t, b.Review(context.Background(), "1-10"))
}

func TestInitFromQuery(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.basket.InitFromQuery(context.Background(), "EP1000000A1,US7654321B2\nDE102005012345A1\n"))
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2", "DE102005012345A1"}, h.basket.GetNumbers(false))

	require.NoError(t, h.basket.InitFromQuery(context.Background(), ""))
	assert.Len(t, h.basket.Entries(), 3)
}
