package serializer

import (
	"bytes"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dot5enko/wavdump/bits"
	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/schema"
	"github.com/dot5enko/wavdump/wavelet"
)

func TestStagingLimits(t *testing.T) {
	l := limitsFor(4)
	require.Equal(t, wavelet.MaxCompressedSize(4)+4, l.entrySize)
	require.Equal(t, WorkingSetSize/l.entrySize, l.entries)
	require.Equal(t, l.entries*l.entrySize, l.bufferSize)
	require.Equal(t, (l.entries-1)*l.entrySize, l.alert)
	require.LessOrEqual(t, l.bufferSize, WorkingSetSize)

	// a block larger than the working set still gets one entry
	huge := limitsFor(128)
	require.Equal(t, 1, huge.entries)
	require.Zero(t, huge.alert)
	require.Equal(t, huge.entrySize, StagingBufferSize(128))
}

func TestProcessIndexConcurrentReservations(t *testing.T) {
	idx := newProcessIndex()
	idx.reset(0, 1)

	const writers = 8
	const perWriter = 50

	type grant struct {
		chunk int
		value byte
		size  int
	}

	var (
		mu     sync.Mutex
		grants []grant
		wg     sync.WaitGroup
	)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				size := 1 + (w*perWriter+i)%17
				value := byte(w*perWriter + i)

				dst, chunk := idx.reserve(size)
				for k := range dst {
					dst[k] = value
				}
				idx.complete()

				mu.Lock()
				grants = append(grants, grant{chunk: chunk, value: value, size: size})
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, idx.lut, writers*perWriter)
	require.Equal(t, idx.pending, idx.completed)

	sort.Slice(grants, func(i, j int) bool { return grants[i].chunk < grants[j].chunk })
	for i, g := range grants {
		require.Equal(t, i, g.chunk, "chunk ids are gapless")
		if i > 0 {
			require.Greater(t, idx.lut[i], idx.lut[i-1])
		}

		start := int(idx.lut[i])
		require.Equal(t, bytes.Repeat([]byte{g.value}, g.size), idx.ocean[start:start+g.size])
	}
}

func TestFinalizeAppendsLookupTable(t *testing.T) {
	idx := newProcessIndex()
	idx.reset(2, 16)

	for _, n := range []int{5, 7} {
		dst, _ := idx.reserve(n)
		clear(dst)
		idx.complete()
	}

	ocean, lut := idx.finalize()
	require.Equal(t, schema.HeaderLUT{AggregateBytes: 12 + 16, NChunks: 2}, lut)
	require.Len(t, ocean, 28)

	require.Equal(t, uint64(0), bits.HostOrder.Uint64(ocean[12:]))
	require.Equal(t, uint64(5), bits.HostOrder.Uint64(ocean[20:]))
}

func TestEncodeAndFlushSettlesMetadata(t *testing.T) {
	enc, err := compression.ByName(compression.LZ4Name)
	require.NoError(t, err)

	idx := newProcessIndex()
	idx.reset(3, 64)

	buf := newStagingBuffer(4)
	buf.ensure()
	for i, blockID := range []int32{2, 0} {
		c := buf.compressor
		for k := range c.Uncompressed() {
			c.Uncompressed()[k] = schema.Real(i + k)
		}
		c.Compress(0, false)
		buf.stage(schema.BlockMetadata{BlockID: blockID, IX: blockID})
	}

	staged := buf.bytes

	_, err = encodeAndFlush(&buf, idx, enc)
	require.NoError(t, err)
	require.True(t, buf.empty())

	require.Equal(t, []int{1}, idx.missingBlocks())
	require.Equal(t, schema.BlockMetadata{BlockID: 2, SubID: 0, IX: 2}, idx.blocks[2])
	require.Equal(t, schema.BlockMetadata{BlockID: 0, SubID: 1}, idx.blocks[0])

	decoded, err := enc.Decompress(make([]byte, 0, StagingBufferSize(4)), idx.ocean[:idx.written])
	require.NoError(t, err)

	require.Len(t, decoded, staged)

	first := int(bits.HostOrder.Uint32(decoded))
	require.LessOrEqual(t, first, wavelet.MaxCompressedSize(4))
	require.Less(t, 4+first, staged)
}
