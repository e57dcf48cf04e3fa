// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheInvalidatesOnBump(t *testing.T) {
	var gen Generation
	c := New[bool, []string](&gen)

	calls := 0
	compute := func() []string {
		calls++
		return []string{"EP1000000A1"}
	}

	assert.Equal(t, []string{"EP1000000A1"}, c.GetOrCompute(true, compute))
	assert.Equal(t, []string{"EP1000000A1"}, c.GetOrCompute(true, compute))
	assert.Equal(t, 1, calls)

	gen.Bump()
	_, ok := c.Get(true)
	assert.False(t, ok, "stale entry must miss after bump")

	c.GetOrCompute(true, compute)
	assert.Equal(t, 2, calls)
}

func TestCacheKeysAreIndependent(t *testing.T) {
	var gen Generation
	c := New[string, int](&gen)

	c.Set("a", 1)
	c.Set("b", 2)

	a, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, a)

	_, ok = c.Get("c")
	assert.False(t, ok)
}

func TestGenerationCurrent(t *testing.T) {
	var gen Generation
	assert.Equal(t, uint64(0), gen.Current())
	assert.Equal(t, uint64(1), gen.Bump())
	assert.Equal(t, uint64(2), gen.Bump())
	assert.Equal(t, uint64(2), gen.Current())
}
