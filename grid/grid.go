package grid

import (
	"github.com/cockroachdb/errors"

	"github.com/dot5enko/wavdump/collective"
)

// Grid is what a rank knows about the decomposed domain.
type Grid interface {
	BlockSize() int
	// BlocksPerDimension is the global block count.
	BlocksPerDimension() [3]int
	// ResidentBlocksPerDimension is the block count of one rank.
	ResidentBlocksPerDimension() [3]int
	H() float64
	ProcessCoords() [3]int
	Comm() collective.Communicator
	// Blocks lists the resident blocks, x fastest.
	Blocks() []*Block
}

// Cartesian places ranks on a process grid in row-major order, the last
// dimension fastest, and gives every rank the same number of blocks.
type Cartesian struct {
	comm      collective.Communicator
	blockSize int
	procs     [3]int
	resident  [3]int
	coords    [3]int
	h         float64

	blocks []*Block
}

var _ Grid = (*Cartesian)(nil)

// ProcessCoords maps a rank to its position on a procs-shaped process grid.
func ProcessCoords(rank int, procs [3]int) [3]int {
	return [3]int{
		rank / (procs[1] * procs[2]),
		(rank / procs[2]) % procs[1],
		rank % procs[2],
	}
}

// NewCartesian builds the resident blocks of comm's rank. The longest side
// of the domain has unit length.
func NewCartesian(comm collective.Communicator, blockSize int, procs, resident [3]int) (*Cartesian, error) {
	if blockSize <= 0 {
		return nil, errors.Newf("grid: invalid block size %d", blockSize)
	}
	if n := procs[0] * procs[1] * procs[2]; n != comm.Size() {
		return nil, errors.Newf("grid: process grid %v has %d ranks, communicator %d", procs, n, comm.Size())
	}
	for d := 0; d < 3; d++ {
		if procs[d] <= 0 || resident[d] <= 0 {
			return nil, errors.Newf("grid: invalid decomposition %v x %v", procs, resident)
		}
	}

	g := &Cartesian{
		comm:      comm,
		blockSize: blockSize,
		procs:     procs,
		resident:  resident,
		coords:    ProcessCoords(comm.Rank(), procs),
	}

	total := g.BlocksPerDimension()
	g.h = 1 / float64(blockSize*max(total[0], total[1], total[2]))

	for z := 0; z < resident[2]; z++ {
		for y := 0; y < resident[1]; y++ {
			for x := 0; x < resident[0]; x++ {
				b := NewBlock(blockSize)
				b.H = g.h
				b.Index = [3]int{
					g.coords[0]*resident[0] + x,
					g.coords[1]*resident[1] + y,
					g.coords[2]*resident[2] + z,
				}
				for d := 0; d < 3; d++ {
					b.Origin[d] = float64(b.Index[d]*blockSize) * g.h
				}
				g.blocks = append(g.blocks, b)
			}
		}
	}

	return g, nil
}

func (g *Cartesian) BlockSize() int { return g.blockSize }

func (g *Cartesian) BlocksPerDimension() [3]int {
	return [3]int{g.procs[0] * g.resident[0], g.procs[1] * g.resident[1], g.procs[2] * g.resident[2]}
}

func (g *Cartesian) ResidentBlocksPerDimension() [3]int { return g.resident }
func (g *Cartesian) H() float64                         { return g.h }
func (g *Cartesian) ProcessCoords() [3]int              { return g.coords }
func (g *Cartesian) Comm() collective.Communicator      { return g.comm }
func (g *Cartesian) Blocks() []*Block                   { return g.blocks }
