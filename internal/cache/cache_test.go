package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v, "overwrite")
	assert.Equal(t, 2, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	for _, k := range []string{"a", "c"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should still be cached", k)
	}
}

func TestLRU_Expiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string, int](10, time.Minute)
	c.now = clk.now

	c.Set("a", 1)
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok, "a should not be expired yet")

	clk.t = clk.t.Add(45 * time.Second)
	_, ok = c.Get("a")
	require.False(t, ok, "a should be expired")
	assert.Equal(t, 0, c.CleanExpired(), "a already dropped, b still fresh")

	clk.t = clk.t.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Delete(t *testing.T) {
	c := NewLRU[int, string](4, 0)
	c.Set(1, "x")
	c.Delete(1)
	c.Delete(2)

	_, ok := c.Get(1)
	assert.False(t, ok)
}
