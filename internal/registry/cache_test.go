package registry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTreeCache(t *testing.T) {
	clock := newFakeClock()
	c := NewTreeCache(time.Minute, clock.Now)

	_, _, ok := c.Get()
	assert.False(t, ok)
	assert.Zero(t, c.Age())

	c.Set([]Identifier{{Name: "a"}}, "sha")
	ids, sha, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "sha", sha)
	assert.Len(t, ids, 1)

	clock.Advance(59 * time.Second)
	_, _, ok = c.Get()
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, _, ok = c.Get()
	assert.False(t, ok)

	c.Set(nil, "sha2")
	c.Invalidate()
	_, _, ok = c.Get()
	assert.False(t, ok)
}

func TestTreeCacheGenerations(t *testing.T) {
	c := NewTreeCache(time.Minute, newFakeClock().Now)

	gen := c.Generation()
	assert.True(t, c.Store(gen, []Identifier{{Name: "a"}}, "sha-1"))

	c.Invalidate()
	assert.NotEqual(t, gen, c.Generation())
	assert.False(t, c.Store(gen, []Identifier{{Name: "b"}}, "sha-old"))
	_, _, ok := c.Get()
	assert.False(t, ok)

	assert.True(t, c.Store(c.Generation(), nil, "sha-2"))
	_, sha, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "sha-2", sha)
}

func TestLimiterEach(t *testing.T) {
	l := NewLimiter(3)
	assert.Equal(t, 3, l.Size())

	var running, peak, total atomic.Int32
	l.Each(context.Background(), 20, func(ctx context.Context, i int) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		total.Add(1)
	})

	assert.Equal(t, int32(20), total.Load())
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestLimiterMinimumSize(t *testing.T) {
	assert.Equal(t, 1, NewLimiter(0).Size())
}
