// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name        string
		rng         string
		remoteLimit int
		start, end  int
	}{
		{name: "default", rng: "", start: 0, end: 10},
		{name: "first page", rng: "1-10", start: 0, end: 10},
		{name: "second page local", rng: "11-20", start: 10, end: 20},
		{name: "second page remote 10", rng: "11-20", remoteLimit: 10, start: 0, end: 10},
		{name: "inside remote page", rng: "21-30", remoteLimit: 100, start: 20, end: 30},
		{name: "last slot of remote page", rng: "91-100", remoteLimit: 100, start: 90, end: 100},
		{name: "next remote page", rng: "101-110", remoteLimit: 100, start: 0, end: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := Window(tt.rng, tt.remoteLimit)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestWindowInvalid(t *testing.T) {
	for _, rng := range []string{"10", "a-b", "0-10", "20-11"} {
		t.Run(rng, func(t *testing.T) {
			_, _, err := Window(rng, 0)
			assert.Error(t, err)
		})
	}
}

func TestSlice(t *testing.T) {
	list := []string{"a", "b", "c"}
	assert.Equal(t, []string{"a", "b", "c"}, Slice(list, 0, 10))
	assert.Equal(t, []string{"b"}, Slice(list, 1, 2))
	assert.Nil(t, Slice(list, 3, 10))
	assert.Nil(t, Slice(list, 5, 10))
	assert.Nil(t, Slice(nil, 0, 10))
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "pn=EP1000000A1 OR pn=US7654321B2",
		BuildQuery([]string{`"EP1000000A1"`, " US7654321B2 "}, "pn", "OR"))
	assert.Equal(t, "num=DE1 AND num=DE2",
		BuildQuery([]string{"DE1", "", "DE2"}, "num", "AND"))
	assert.Equal(t, "", BuildQuery(nil, "pn", "OR"))
}
