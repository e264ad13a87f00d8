package serializer

import (
	"sync"

	"github.com/dot5enko/wavdump/bits"
	"github.com/dot5enko/wavdump/schema"
)

// processIndex collects the output of all workers of one rank: the ocean of
// encoded chunks, the chunk lookup table and one metadata slot per block.
type processIndex struct {
	mu   sync.Mutex
	cond *sync.Cond

	ocean     []byte
	written   int
	pending   int
	completed int

	lut    []uint64
	blocks []schema.BlockMetadata
}

func newProcessIndex() *processIndex {
	p := &processIndex{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// reset prepares the index for a dump of nblocks blocks. The ocean keeps its
// capacity, sized for raw data on first use.
func (p *processIndex) reset(nblocks int, rawBytes int) {
	p.written = 0
	p.pending = 0
	p.completed = 0
	p.lut = p.lut[:0]

	if cap(p.blocks) < nblocks {
		p.blocks = make([]schema.BlockMetadata, nblocks)
	}
	p.blocks = p.blocks[:nblocks]
	for i := range p.blocks {
		p.blocks[i] = schema.BlockMetadata{BlockID: -1}
	}

	if len(p.ocean) == 0 {
		p.ocean = make([]byte, max(rawBytes, 1))
	}
}

// reserve claims n ocean bytes and the next chunk id. The returned slice may
// be filled without holding any lock; complete must follow.
func (p *processIndex) reserve(n int) (dst []byte, chunkID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.written+n > len(p.ocean) {
		// copies into the current ocean must land before it moves
		for p.completed != p.pending {
			p.cond.Wait()
		}
		if p.written+n <= len(p.ocean) {
			break
		}
		p.grow(p.written + n)
	}

	offset := p.written
	p.written += n

	chunkID = len(p.lut)
	p.lut = append(p.lut, uint64(offset))
	p.pending++

	return p.ocean[offset : offset+n : offset+n], chunkID
}

func (p *processIndex) grow(atLeast int) {
	newSize := max(2*len(p.ocean), atLeast)

	ocean := make([]byte, newSize)
	copy(ocean, p.ocean[:p.written])
	p.ocean = ocean
}

func (p *processIndex) complete() {
	p.mu.Lock()
	p.completed++
	p.mu.Unlock()

	p.cond.Broadcast()
}

// settle records the final chunk id and sub id of staged blocks.
func (p *processIndex) settle(hot []schema.BlockMetadata, chunkID int) {
	for i := range hot {
		m := hot[i]
		m.SubID = int32(i)
		m.IDCompression = int32(chunkID)
		p.blocks[m.BlockID] = m
	}
}

// finalize appends the chunk lookup table to the ocean and returns the
// rank's file-ready bytes with its lookup header.
func (p *processIndex) finalize() ([]byte, schema.HeaderLUT) {
	nchunks := len(p.lut)
	total := p.written + 8*nchunks

	if total > len(p.ocean) {
		p.grow(total)
	}

	tail := bits.NewEncodeBuffer(p.ocean[p.written:total], bits.HostOrder)
	for _, off := range p.lut {
		tail.PutUint64(off)
	}

	return p.ocean[:total], schema.HeaderLUT{
		AggregateBytes: uint64(total),
		NChunks:        int32(nchunks),
	}
}

// missingBlocks lists block ids no chunk settled.
func (p *processIndex) missingBlocks() []int {
	var res []int
	for i, m := range p.blocks {
		if int(m.BlockID) != i {
			res = append(res, i)
		}
	}
	return res
}
