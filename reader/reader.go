// Package reader opens wavelet dumps and decodes single blocks by their
// global coordinates.
package reader

import (
	"bufio"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/dot5enko/wavdump/bits"
	"github.com/dot5enko/wavdump/cache"
	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/io"
	"github.com/dot5enko/wavdump/metrics"
	"github.com/dot5enko/wavdump/schema"
	"github.com/dot5enko/wavdump/serializer"
	"github.com/dot5enko/wavdump/wavelet"
)

var ErrOutOfBounds = errors.New("reader: block coordinates out of bounds")

// RankInfo describes the ocean region one rank wrote.
type RankInfo struct {
	Base           uint64
	AggregateBytes uint64
	NChunks        int
	FirstChunk     int
}

// LUTOffset is where the rank's chunk lookup table starts.
func (r RankInfo) LUTOffset() uint64 {
	return r.Base + r.AggregateBytes - 8*uint64(r.NChunks)
}

// ChunkInfo locates one encoded chunk in the file.
type ChunkInfo struct {
	Rank  int
	Start uint64
	End   uint64
}

type Options struct {
	// Concurrency bounds the number of chunks decoded at the same time.
	Concurrency int
	// CachedChunks is the number of decoded chunks kept between reads.
	CachedChunks int
	Metrics      *metrics.Metrics
}

type Reader struct {
	file *io.File

	header       schema.FileHeader
	displacement uint64
	encoder      compression.Encoder

	ranks  []RankInfo
	chunks []ChunkInfo
	blocks []schema.BlockMetadata
	index  map[[3]int]schema.CompressedChunk

	scratch   *cache.FixedSizeBufferPool
	decoded   *cache.ChunkCache
	decoders  sync.Pool
	loadGroup singleflight.Group
	metrics   *metrics.Metrics
}

func Open(path string, expect schema.Expectation) (*Reader, error) {
	return OpenWith(path, expect, Options{})
}

func OpenWith(path string, expect schema.Expectation, opts Options) (_ *Reader, topErr error) {
	f := io.NewFile(path)
	if err := f.Open(true, false); err != nil {
		return nil, err
	}
	defer func() {
		if topErr != nil {
			f.Close()
		}
	}()

	r := &Reader{file: f, metrics: opts.Metrics}

	// payloads can only be decoded with the transform this build carries
	if expect.Wavelets == "" {
		expect.Wavelets = wavelet.Name
	}

	if err := r.load(expect); err != nil {
		return nil, errors.Wrapf(err, "open dump %s", path)
	}

	enc, err := compression.ByName(r.header.Encoder)
	if err != nil {
		return nil, schema.CorruptionErrorf("unsupported encoder %q", r.header.Encoder)
	}
	r.encoder = enc

	blockSize := r.header.BlockSize
	r.decoded = cache.NewChunkCache(opts.CachedChunks)
	r.scratch = cache.NewFixedSizeBufferPool(max(opts.Concurrency, 1), max(serializer.WorkingSetSize, serializer.StagingBufferSize(blockSize)))
	r.decoders.New = func() any {
		return wavelet.NewCompressor(blockSize)
	}

	return r, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

func (r *Reader) load(expect schema.Expectation) error {
	size, err := r.file.Size()
	if err != nil {
		return err
	}

	if size < int64(schema.MiniHeaderSize) {
		return schema.CorruptionErrorf("file of %d bytes has no mini header", size)
	}

	mini := make([]byte, schema.MiniHeaderSize)
	if err := r.file.ReadAt(mini, 0); err != nil {
		return err
	}

	r.displacement = bits.HostOrder.Uint64(mini)
	if string(mini[schema.SizeofSizeT:]) != schema.OceanTitle {
		return schema.CorruptionErrorf("missing ocean title")
	}
	if r.displacement < uint64(schema.MiniHeaderSize) || r.displacement > uint64(size) {
		return schema.CorruptionErrorf("header displacement %d outside of file of %d bytes", r.displacement, size)
	}

	section, err := r.file.Section(int64(r.displacement), size-int64(r.displacement))
	if err != nil {
		return err
	}
	br := bufio.NewReader(section)

	if r.header, err = schema.ParseFileHeader(br); err != nil {
		return err
	}
	if err := r.header.Verify(expect); err != nil {
		return err
	}

	nranks, err := r.header.Subdomains()
	if err != nil {
		return err
	}

	if err := r.readMetadata(br, nranks, uint64(size)-r.displacement); err != nil {
		return err
	}

	title := make([]byte, len(schema.LUTTitle))
	if err := bits.NewReader(br, bits.HostOrder).ReadBytes(len(title), title); err != nil || string(title) != schema.LUTTitle {
		return schema.CorruptionErrorf("missing lut title")
	}

	luts := make([]schema.HeaderLUT, nranks)
	lr := bits.NewReader(br, bits.HostOrder)
	for i := range luts {
		if err := luts[i].FromBytes(lr); err != nil {
			return schema.CorruptionErrorf("truncated lookup header of rank %d: %s", i, err.Error())
		}
	}

	if err := r.readChunkTables(luts); err != nil {
		return err
	}

	return r.buildIndex()
}

// readMetadata reads the block records of every rank. available is what
// the file holds past the displacement and bounds the record count.
func (r *Reader) readMetadata(br *bufio.Reader, nranks int, available uint64) error {
	total := nranks * r.header.BlocksPerSubdomain()
	if uint64(total) > available/schema.BlockMetadataSize {
		return schema.CorruptionErrorf("%d block records do not fit in %d header bytes", total, available)
	}
	r.blocks = make([]schema.BlockMetadata, total)

	mr := bits.NewReader(br, bits.HostOrder)
	for i := range r.blocks {
		if err := r.blocks[i].FromBytes(mr); err != nil {
			return schema.CorruptionErrorf("truncated block metadata %d of %d: %s", i, total, err.Error())
		}
	}
	return nil
}

// readChunkTables loads every rank's chunk lookup table from the tail of its
// ocean region and rebases offsets and chunk ids to file-global values.
func (r *Reader) readChunkTables(luts []schema.HeaderLUT) error {
	base := uint64(schema.MiniHeaderSize)
	bps := r.header.BlocksPerSubdomain()

	for rank, lut := range luts {
		if lut.NChunks < 0 {
			return schema.CorruptionErrorf("rank %d declares %d chunks", rank, lut.NChunks)
		}

		info := RankInfo{
			Base:           base,
			AggregateBytes: lut.AggregateBytes,
			NChunks:        int(lut.NChunks),
			FirstChunk:     len(r.chunks),
		}

		if lut.AggregateBytes < lut.LUTBytes() || lut.AggregateBytes > r.displacement-base {
			return schema.CorruptionErrorf("rank %d region [%d, +%d) with %d lut bytes does not fit before %d",
				rank, base, lut.AggregateBytes, lut.LUTBytes(), r.displacement)
		}

		dataBytes := lut.AggregateBytes - lut.LUTBytes()

		raw := make([]byte, lut.LUTBytes())
		if err := r.file.ReadAt(raw, int64(info.LUTOffset())); err != nil {
			return err
		}

		offsets := make([]uint64, info.NChunks)
		for i := range offsets {
			offsets[i] = bits.HostOrder.Uint64(raw[8*i:])

			if offsets[i] >= dataBytes {
				return schema.CorruptionErrorf("rank %d chunk %d starts at %d past its %d data bytes", rank, i, offsets[i], dataBytes)
			}
			if i > 0 && offsets[i] <= offsets[i-1] {
				return schema.CorruptionErrorf("rank %d chunk offsets not increasing at %d", rank, i)
			}
		}

		for i, off := range offsets {
			end := dataBytes
			if i+1 < len(offsets) {
				end = offsets[i+1]
			}
			r.chunks = append(r.chunks, ChunkInfo{Rank: rank, Start: base + off, End: base + end})
		}

		for i := rank * bps; i < (rank+1)*bps; i++ {
			m := &r.blocks[i]
			if m.IDCompression < 0 || int(m.IDCompression) >= info.NChunks {
				return schema.CorruptionErrorf("block %d of rank %d refers to chunk %d of %d", m.BlockID, rank, m.IDCompression, info.NChunks)
			}
			m.IDCompression += int32(info.FirstChunk)
		}

		r.ranks = append(r.ranks, info)
		base += lut.AggregateBytes
	}

	if base != r.displacement {
		return schema.CorruptionErrorf("rank regions end at %d, header starts at %d", base, r.displacement)
	}
	return nil
}

func (r *Reader) buildIndex() error {
	r.index = make(map[[3]int]schema.CompressedChunk, len(r.blocks))

	for _, m := range r.blocks {
		c := m.Coords()
		if !r.inBounds(c) {
			return schema.CorruptionErrorf("block at %v outside of %v", c, r.header.Blocks)
		}
		if m.SubID < 0 {
			return schema.CorruptionErrorf("block at %v has sub id %d", c, m.SubID)
		}
		if _, dup := r.index[c]; dup {
			return schema.CorruptionErrorf("block at %v stored twice", c)
		}

		chunk := r.chunks[m.IDCompression]
		r.index[c] = schema.CompressedChunk{
			Start:  chunk.Start,
			Extent: chunk.End - chunk.Start,
			SubID:  m.SubID,
		}
	}
	return nil
}

func (r *Reader) inBounds(c [3]int) bool {
	for d := 0; d < 3; d++ {
		if c[d] < 0 || c[d] >= r.header.Blocks[d] {
			return false
		}
	}
	return true
}

func (r *Reader) Header() schema.FileHeader {
	return r.header
}

func (r *Reader) Displacement() uint64 {
	return r.displacement
}

func (r *Reader) Ranks() []RankInfo {
	return r.ranks
}

func (r *Reader) Chunks() []ChunkInfo {
	return r.chunks
}

// Blocks lists block metadata rank-major with file-global chunk ids.
func (r *Reader) Blocks() []schema.BlockMetadata {
	return r.blocks
}

// CachedChunks reports how many decoded chunks are currently kept.
func (r *Reader) CachedChunks() int {
	return r.decoded.Len()
}

// Lookup returns where the block at the given coordinates is stored.
func (r *Reader) Lookup(ix, iy, iz int) (schema.CompressedChunk, error) {
	c := [3]int{ix, iy, iz}
	if !r.inBounds(c) {
		return schema.CompressedChunk{}, errors.Wrapf(ErrOutOfBounds, "block %v, grid %v", c, r.header.Blocks)
	}

	chunk, ok := r.index[c]
	if !ok {
		return chunk, schema.CorruptionErrorf("no block stored at %v", c)
	}
	return chunk, nil
}

// ReadBlock decodes the block at the given coordinates into out, which must
// hold BlockSize³ values laid out x fastest.
func (r *Reader) ReadBlock(ix, iy, iz int, out []schema.Real) error {
	chunk, err := r.Lookup(ix, iy, iz)
	if err != nil {
		return err
	}

	decoded, err := r.loadChunk(chunk)
	if err != nil {
		return err
	}

	payload, err := subBlock(decoded, chunk.SubID)
	if err != nil {
		return errors.Wrapf(err, "block %d,%d,%d", ix, iy, iz)
	}

	dec := r.decoders.Get().(*wavelet.Compressor)
	defer r.decoders.Put(dec)

	if err := dec.Decompress(r.header.HalfFloat, payload, out); err != nil {
		return errors.Wrapf(err, "block %d,%d,%d", ix, iy, iz)
	}

	r.metrics.RecordBlockRead()
	return nil
}

// loadChunk reads and decodes one chunk. Concurrent loads of the same chunk
// share a single decode.
func (r *Reader) loadChunk(chunk schema.CompressedChunk) ([]byte, error) {
	if data, ok := r.decoded.Get(chunk.Start); ok {
		return data, nil
	}

	v, err, _ := r.loadGroup.Do(strconv.FormatUint(chunk.Start, 10), func() (any, error) {

		scratch, scratchIdx := r.scratch.Get()
		defer r.scratch.Return(scratchIdx)

		compressed := make([]byte, chunk.Extent)
		if err := r.file.ReadAt(compressed, int64(chunk.Start)); err != nil {
			return nil, err
		}

		decoded, err := r.encoder.Decompress(scratch[:0], compressed)
		if err != nil {
			return nil, schema.CorruptionErrorf("chunk at %d: %s", chunk.Start, err.Error())
		}

		data := append([]byte(nil), decoded...)
		r.decoded.Put(chunk.Start, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// subBlock walks the length-prefixed entries of a decoded chunk.
func subBlock(decoded []byte, subID int32) ([]byte, error) {
	pos := 0
	for k := int32(0); ; k++ {
		if len(decoded)-pos < 4 {
			return nil, schema.CorruptionErrorf("chunk ends before entry %d of %d", k, subID)
		}

		n := int(int32(bits.HostOrder.Uint32(decoded[pos:])))
		pos += 4

		if n < 0 || len(decoded)-pos < n {
			return nil, schema.CorruptionErrorf("entry %d of %d bytes overruns chunk", k, n)
		}

		if k == subID {
			return decoded[pos : pos+n], nil
		}
		pos += n
	}
}
