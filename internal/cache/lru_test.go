package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache(t *testing.T) {
	t.Run("get and set", func(t *testing.T) {
		c, _ := newTestCache(2, time.Minute)
		c.Set("a", "1")
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "1", v)

		_, ok = c.Get("missing")
		assert.False(t, ok)
		hits, misses := c.Stats()
		assert.Equal(t, uint64(1), hits)
		assert.Equal(t, uint64(1), misses)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		c, _ := newTestCache(2, time.Minute)
		c.Set("a", "1")
		c.Set("b", "2")
		c.Get("a")
		c.Set("c", "3")

		_, ok := c.Get("b")
		assert.False(t, ok)
		_, ok = c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, c.Size())
	})

	t.Run("expires entries", func(t *testing.T) {
		c, clk := newTestCache(4, time.Minute)
		c.Set("a", "1")
		c.Set("b", "2")
		clk.t = clk.t.Add(2 * time.Minute)
		c.Set("c", "3")

		assert.Equal(t, 2, c.CleanExpired())
		_, ok := c.Get("c")
		assert.True(t, ok)
		_, ok = c.Get("a")
		assert.False(t, ok)
	})

	t.Run("zero size disables caching", func(t *testing.T) {
		c, _ := newTestCache(0, time.Minute)
		c.Set("a", "1")
		assert.Equal(t, 0, c.Size())
	})
}

func TestKey(t *testing.T) {
	type input struct {
		IDs  []string
		TopN int
	}
	k1, err := Key("insights", input{IDs: []string{"a", "b"}, TopN: 3})
	require.NoError(t, err)
	k2, err := Key("insights", input{IDs: []string{"a", "b"}, TopN: 3})
	require.NoError(t, err)
	k3, err := Key("insights", input{IDs: []string{"a", "b"}, TopN: 4})
	require.NoError(t, err)
	k4, err := Key("forecast", input{IDs: []string{"a", "b"}, TopN: 3})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
	assert.Len(t, k1, 64)

	_, err = Key(make(chan int))
	assert.Error(t, err)
}

func TestRunCleanup(t *testing.T) {
	c, clk := newTestCache(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(2 * time.Minute)
	c.Set("c", "3")

	ctx, cancel := context.WithCancel(context.Background())
	removed := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		RunCleanup(ctx, time.Millisecond, func(n int) {
			select {
			case removed <- n:
			default:
			}
		}, c)
		close(done)
	}()

	assert.Equal(t, 2, <-removed)
	cancel()
	<-done
	assert.Equal(t, 1, c.Size())
}

func TestRunCleanupDisabled(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	// Returns at once instead of blocking on a ticker.
	RunCleanup(context.Background(), 0, nil, c)
}
