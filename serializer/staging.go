package serializer

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dot5enko/wavdump/bits"
	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/schema"
	"github.com/dot5enko/wavdump/wavelet"
)

// stagingBuffer accumulates length-prefixed block payloads of one worker
// until they are encoded as a single chunk.
type stagingBuffer struct {
	limits stagingLimits
	size   int

	data  []byte
	bytes int
	hot   []schema.BlockMetadata

	encoded    []byte
	compressor *wavelet.Compressor
}

// newStagingBuffer only sizes the buffer, ensure allocates it.
func newStagingBuffer(blockSize int) stagingBuffer {
	return stagingBuffer{limits: limitsFor(blockSize), size: blockSize}
}

func (b *stagingBuffer) ensure() {
	if b.compressor != nil {
		return
	}
	b.data = make([]byte, b.limits.bufferSize)
	b.hot = make([]schema.BlockMetadata, 0, b.limits.entries)
	b.compressor = wavelet.NewCompressor(b.size)
}

func (b *stagingBuffer) blockSize() int {
	return b.size
}

// stage appends the last compressed payload of the buffer's compressor.
func (b *stagingBuffer) stage(meta schema.BlockMetadata) {
	payload := b.compressor.CompressedData()

	w := bits.NewEncodeBuffer(b.data[b.bytes:], bits.HostOrder)
	w.PutInt32(int32(len(payload)))
	w.Write(payload)

	b.bytes += w.Position()
	b.hot = append(b.hot, meta)
}

func (b *stagingBuffer) full() bool {
	return b.bytes >= b.limits.alert || len(b.hot) >= b.limits.entries
}

func (b *stagingBuffer) empty() bool {
	return b.bytes == 0
}

func (b *stagingBuffer) reset() {
	b.bytes = 0
	b.hot = b.hot[:0]
}

// encodeAndFlush turns the staged bytes into one chunk of idx and settles the
// staged blocks' metadata.
func encodeAndFlush(b *stagingBuffer, idx *processIndex, enc compression.Encoder) (time.Duration, error) {
	start := time.Now()

	encoded, err := enc.Compress(b.encoded, b.data[:b.bytes])
	if err != nil {
		return 0, errors.NewAssertionErrorWithWrappedErrf(err, "%s failed to encode a chunk of %d bytes", enc.Name(), b.bytes)
	}
	b.encoded = encoded

	dst, chunkID := idx.reserve(len(encoded))
	copy(dst, encoded)
	idx.complete()

	idx.settle(b.hot, chunkID)
	b.reset()

	return time.Since(start), nil
}
