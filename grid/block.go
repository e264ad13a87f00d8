// Package grid is the block-structured domain decomposition the dump writer
// reads from: resident blocks of a rank, their global coordinates and the
// channel streamers extracting scalar values from them.
package grid

import "github.com/dot5enko/wavdump/schema"

// NVar is the number of conserved quantities carried per cell.
const NVar = 7

// Block is a cubic block of cells stored structure-of-arrays, x fastest.
type Block struct {
	Size   int
	Index  [3]int
	Origin [3]float64
	H      float64

	Rho    []schema.Real
	RhoU   []schema.Real
	RhoV   []schema.Real
	RhoW   []schema.Real
	Energy []schema.Real
	G      []schema.Real
	P      []schema.Real
}

func NewBlock(size int) *Block {
	n := size * size * size
	arena := make([]schema.Real, NVar*n)

	b := &Block{Size: size}
	for i, f := range b.fields() {
		*f = arena[i*n : (i+1)*n : (i+1)*n]
	}
	return b
}

func (b *Block) fields() [NVar]*[]schema.Real {
	return [NVar]*[]schema.Real{&b.Rho, &b.RhoU, &b.RhoV, &b.RhoW, &b.Energy, &b.G, &b.P}
}

// At is the flat index of a cell.
func (b *Block) At(x, y, z int) int {
	return x + b.Size*(y+b.Size*z)
}

// Pos is the cell center position.
func (b *Block) Pos(x, y, z int) [3]float64 {
	return [3]float64{
		b.Origin[0] + b.H*(float64(x)+0.5),
		b.Origin[1] + b.H*(float64(y)+0.5),
		b.Origin[2] + b.H*(float64(z)+0.5),
	}
}

func (b *Block) Clear() {
	for _, f := range b.fields() {
		clear(*f)
	}
}
