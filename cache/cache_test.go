package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedSizeBufferPool(t *testing.T) {
	p := NewFixedSizeBufferPool(2, 16)
	require.Equal(t, 16, p.BufSize())

	a, ida := p.Get()
	b, idb := p.Get()
	require.NotEqual(t, ida, idb)
	require.Len(t, a, 16)
	require.Equal(t, 16, cap(a))
	require.Equal(t, 0, p.Available())

	a[0] = 1
	require.Zero(t, b[0])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := p.GetContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.Return(ida)
	got, id, err := p.GetContext(context.Background())
	require.NoError(t, err)
	require.Equal(t, ida, id)
	require.Equal(t, byte(1), got[0])
}

func TestTypedRingBufferKeepsState(t *testing.T) {
	r := NewTypedRingBuffer(1, func(s *[]int) { *s = make([]int, 0, 8) })
	require.Equal(t, 1, r.Len())

	s, id := r.Get()
	*s = append(*s, 42)
	r.Return(id)

	again, _ := r.Get()
	require.Equal(t, []int{42}, *again)
	require.Equal(t, 8, cap(*again))
}

func TestChunkCacheEvictsLeastRecentlyRead(t *testing.T) {
	c := NewChunkCache(2)

	c.Put(10, []byte("a"))
	c.Put(20, []byte("b"))

	got, ok := c.Get(10)
	require.True(t, ok)
	require.Equal(t, "a", string(got))

	c.Put(30, []byte("c"))
	require.Equal(t, 2, c.Len())

	_, ok = c.Get(20)
	require.False(t, ok)

	_, ok = c.Get(10)
	require.True(t, ok)

	stats, ok := c.Stats(10)
	require.True(t, ok)
	require.Equal(t, 2, stats.Reads)
	require.False(t, stats.Created.IsZero())
}

func TestChunkCacheDisabled(t *testing.T) {
	c := NewChunkCache(0)
	c.Put(1, []byte("x"))

	_, ok := c.Get(1)
	require.False(t, ok)
	require.Zero(t, c.Len())

	var nilCache *ChunkCache
	nilCache.Put(1, nil)
	_, ok = nilCache.Get(1)
	require.False(t, ok)
}
