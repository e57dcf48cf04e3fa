// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/patent-chooser/internal/basket"
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

type fakeSearcher struct {
	mu       sync.Mutex
	reviewer search.Reviewer
	reqs     []reconcile.Request
}

func (f *fakeSearcher) Documents() []types.ResultDocument { return nil }

func (f *fakeSearcher) ListSearch(_ context.Context, req reconcile.Request) search.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return search.State{}
}

func (f *fakeSearcher) SetReviewer(r search.Reviewer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewer = r
}

func newTestSession(t *testing.T) (*Session, *basket.SQLStore, *fakeSearcher, *signal.Bus) {
	t.Helper()
	store, err := basket.NewSQLStore(types.BasketConfig{DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	searcher := &fakeSearcher{}
	bus := signal.NewBus()
	return New(store, searcher, bus, nil), store, searcher, bus
}

func TestInactiveBasket(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Basket()
	assert.ErrorIs(t, err, ErrBasketInactive)
	_, err = s.Rate(ctx, "EP1000000A1", nil, nil)
	assert.ErrorIs(t, err, ErrBasketInactive)
	assert.ErrorIs(t, s.MarkSeen(ctx, "EP1000000A1"), ErrBasketInactive)
	_, err = s.SeenTwice("EP1000000A1")
	assert.ErrorIs(t, err, ErrBasketInactive)
}

func TestActivateProject(t *testing.T) {
	s, store, searcher, bus := newTestSession(t)
	ctx := context.Background()

	var activated []any
	bus.Subscribe(signal.BasketActivated, func(ev signal.Event) { activated = append(activated, ev.Payload) })

	require.NoError(t, store.Save(ctx, "prior-art", types.BasketEntry{ID: "1", Number: "EP1000000A1"}))
	require.NoError(t, s.ActivateProject(ctx, "prior-art", ActivateOptions{}))

	assert.Equal(t, "prior-art", s.Project())
	assert.Equal(t, []any{"prior-art"}, activated)

	b, err := s.Basket()
	require.NoError(t, err)
	assert.Equal(t, []string{"EP1000000A1"}, b.GetNumbers(false))
	assert.Same(t, b, searcher.reviewer)

	score := 2
	e, err := s.Rate(ctx, "US7654321B2", &score, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, e.ScoreValue())

	require.NoError(t, s.MarkSeen(ctx, "DE102005012345A1"))
	seen, err := s.SeenTwice("DE102005012345A1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestActivateSwitchesProject(t *testing.T) {
	s, store, _, bus := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.ActivateProject(ctx, "first", ActivateOptions{}))
	first, _ := s.Basket()
	_, err := first.Add(ctx, "EP1000000A1", false)
	require.NoError(t, err)

	require.NoError(t, s.ActivateProject(ctx, "second", ActivateOptions{}))
	second, err := s.Basket()
	require.NoError(t, err)
	assert.True(t, second.Empty())

	bus.Publish(signal.QueryRecord, types.SearchInfo{Datasource: "ops", Query: "ti=robot", ResultCount: 3})

	firstQueries, err := store.Queries(ctx, "first")
	require.NoError(t, err)
	assert.Empty(t, firstQueries, "queries go to the active project only")
	secondQueries, err := store.Queries(ctx, "second")
	require.NoError(t, err)
	require.Len(t, secondQueries, 1)
	assert.Equal(t, "ti=robot", secondQueries[0].Query)
}

func TestDeactivate(t *testing.T) {
	s, store, searcher, bus := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.ActivateProject(ctx, "p", ActivateOptions{}))

	s.Deactivate()
	assert.Empty(t, s.Project())
	assert.Nil(t, searcher.reviewer)
	_, err := s.Basket()
	assert.ErrorIs(t, err, ErrBasketInactive)

	bus.Publish(signal.QueryRecord, types.SearchInfo{Datasource: "ops", Query: "q"})
	got, err := store.Queries(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestActivateReviewBootstrap(t *testing.T) {
	s, _, searcher, _ := newTestSession(t)
	ctx := context.Background()

	err := s.ActivateProject(ctx, "shared", ActivateOptions{
		Datasource: types.DatasourceReview,
		Numberlist: "EP1000000A1,US7654321B2",
		Range:      "1-10",
	})
	require.NoError(t, err)

	require.Len(t, searcher.reqs, 1)
	assert.Equal(t, []string{"EP1000000A1", "US7654321B2"}, searcher.reqs[0].Numbers)
	assert.Equal(t, types.DatasourceReview, searcher.reqs[0].Datasource)
}

func TestActivateEmptyName(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	assert.Error(t, s.ActivateProject(context.Background(), " ", ActivateOptions{}))
}
