// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package basket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/patent-chooser/pkg/types"
)

func TestSQLStoreSaveFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e := types.BasketEntry{ID: "e1", Number: "EP1000000A1", Timestamp: ts, Title: "Robot arm"}
	require.NoError(t, s.Save(ctx, "p", e))

	got, err := s.Fetch(ctx, "p", "e1")
	require.NoError(t, err)
	assert.Equal(t, "EP1000000A1", got.Number)
	assert.Equal(t, "Robot arm", got.Title)
	assert.True(t, got.Timestamp.Equal(ts))
	assert.Nil(t, got.Score)
	assert.Nil(t, got.Dismiss)

	score, dismiss := 2, true
	e.Score, e.Dismiss, e.Seen = &score, &dismiss, true
	require.NoError(t, s.Save(ctx, "p", e))

	got, err = s.Fetch(ctx, "p", "e1")
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 2, *got.Score)
	assert.True(t, got.Dismissed())
	assert.True(t, got.Seen)

	entries, err := s.Entries(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "save is an upsert")
}

func TestSQLStoreFetchMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Fetch(context.Background(), "p", "nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSQLStoreProjectsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "a", types.BasketEntry{ID: "1", Number: "EP1", Timestamp: time.Now()}))
	require.NoError(t, s.Save(ctx, "b", types.BasketEntry{ID: "2", Number: "EP2", Timestamp: time.Now()}))

	entries, err := s.Entries(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "EP1", entries[0].Number)

	require.NoError(t, s.Destroy(ctx, "a", "2"))
	entries, err = s.Entries(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "destroy is scoped to the project")
}

func TestSQLStoreQueryHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordQuery(ctx, "p", types.SearchInfo{Datasource: "ops", Query: "ti=robot", Range: "1-10", ResultCount: 42}))
	require.NoError(t, s.RecordQuery(ctx, "p", types.SearchInfo{Datasource: "depatisnet", Query: "bi=gripper", ResultCount: 7}))
	require.NoError(t, s.Touch(ctx, "p"))

	got, err := s.Queries(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ti=robot", got[0].Query)
	assert.Equal(t, "1-10", got[0].Range)
	assert.Equal(t, 42, got[0].ResultCount)
	assert.Equal(t, "depatisnet", got[1].Datasource)
	assert.False(t, got[1].Created.IsZero())
}

func TestSQLStoreUnsupportedDriver(t *testing.T) {
	_, err := NewSQLStore(types.BasketConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: driverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLStore{driver: driverSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}
