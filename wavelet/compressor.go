// Package wavelet compresses one cubic block of field values with a
// multi-level separable CDF 9/7 transform followed by threshold decimation.
package wavelet

import (
	"math"

	"github.com/ajroetker/go-highway/hwy"
	hwavelet "github.com/ajroetker/go-highway/hwy/contrib/wavelet"

	"github.com/dot5enko/wavdump/bits"
	"github.com/dot5enko/wavdump/schema"
)

// Name is the basis recorded in dump headers.
const Name = "cdf97-lifting"

const countSize = 4

// MaxCompressedSize bounds the payload of a single block: retained count,
// significance bitfield and every coefficient stored at full precision.
func MaxCompressedSize(blockSize int) int {
	n := blockSize * blockSize * blockSize
	return countSize + 8*bits.WordsFor(n) + schema.SizeofReal*n
}

// Compressor owns the scratch of one block. It is not safe for concurrent use;
// every worker keeps its own.
type Compressor struct {
	blockSize int

	data   []schema.Real
	coeffs []schema.Real
	line   []schema.Real
	mask   bits.Bitfield

	out bits.BitWriter
}

func NewCompressor(blockSize int) *Compressor {
	n := blockSize * blockSize * blockSize

	return &Compressor{
		blockSize: blockSize,
		data:      make([]schema.Real, n),
		coeffs:    make([]schema.Real, n),
		line:      make([]schema.Real, blockSize),
		mask:      bits.NewBitfield(n),
		out:       bits.NewEncodeBuffer(make([]byte, MaxCompressedSize(blockSize)), bits.HostOrder),
	}
}

func (c *Compressor) BlockSize() int {
	return c.blockSize
}

// Uncompressed is the input buffer, x fastest then y then z.
func (c *Compressor) Uncompressed() []schema.Real {
	return c.data
}

// CompressedData is the payload produced by the last Compress call.
func (c *Compressor) CompressedData() []byte {
	return c.out.Bytes()
}

// Compress transforms the uncompressed buffer, drops every coefficient whose
// magnitude does not exceed threshold and returns the payload size. The DC
// coefficient is always kept.
func (c *Compressor) Compress(threshold float64, halfFloat bool) int {
	copy(c.coeffs, c.data)
	c.forward()

	c.mask.Reset()
	c.mask.Set(0)

	for i := 1; i < len(c.coeffs); i++ {
		if math.Abs(float64(c.coeffs[i])) > threshold {
			c.mask.Set(i)
		}
	}

	c.out.Reset()
	c.out.PutUint32(uint32(c.mask.Count()))

	for _, w := range c.mask {
		c.out.PutUint64(w)
	}

	c.mask.ForEach(func(i int) {
		if halfFloat {
			c.out.PutUint16(uint16(hwy.Float32ToFloat16(c.coeffs[i])))
		} else {
			c.out.PutFloat32(c.coeffs[i])
		}
	})

	return c.out.Position()
}

// Decompress inverts Compress. out must hold blockSize³ values.
func (c *Compressor) Decompress(halfFloat bool, src []byte, out []schema.Real) error {
	n := len(c.coeffs)
	if len(out) < n {
		return schema.CorruptionErrorf("output of %d values is smaller than block of %d", len(out), n)
	}

	words := len(c.mask)
	if len(src) < countSize+8*words {
		return schema.CorruptionErrorf("block payload of %d bytes is truncated", len(src))
	}

	count := int(bits.HostOrder.Uint32(src))
	pos := countSize

	for i := range c.mask {
		c.mask[i] = bits.HostOrder.Uint64(src[pos:])
		pos += 8
	}

	if got := c.mask.Count(); got != count {
		return schema.CorruptionErrorf("block declares %d coefficients, bitfield has %d", count, got)
	}

	valueSize := schema.SizeofReal
	if halfFloat {
		valueSize = 2
	}

	if len(src)-pos < count*valueSize {
		return schema.CorruptionErrorf("block payload holds %d value bytes, need %d", len(src)-pos, count*valueSize)
	}

	clear(c.coeffs)

	var outOfRange bool
	c.mask.ForEach(func(i int) {
		if i >= n {
			outOfRange = true
			return
		}
		if halfFloat {
			c.coeffs[i] = hwy.Float16ToFloat32(hwy.Float16(bits.HostOrder.Uint16(src[pos:])))
		} else {
			c.coeffs[i] = math.Float32frombits(bits.HostOrder.Uint32(src[pos:]))
		}
		pos += valueSize
	})

	if outOfRange {
		return schema.CorruptionErrorf("bitfield addresses coefficients beyond block size %d", c.blockSize)
	}

	c.inverse()
	copy(out, c.coeffs)

	return nil
}

// levels lists the edge of the low-pass cube transformed at every level.
func levels(blockSize int) []int {
	var res []int
	for e := blockSize; e >= 2; e = (e + 1) / 2 {
		res = append(res, e)
	}
	return res
}

func (c *Compressor) forward() {
	for _, e := range levels(c.blockSize) {
		for axis := 0; axis < 3; axis++ {
			c.sweep(e, axis, hwavelet.Analyze97[schema.Real])
		}
	}
}

func (c *Compressor) inverse() {
	lv := levels(c.blockSize)
	for l := len(lv) - 1; l >= 0; l-- {
		for axis := 2; axis >= 0; axis-- {
			c.sweep(lv[l], axis, hwavelet.Synthesize97[schema.Real])
		}
	}
}

// sweep applies a 1-D lifting step to every line along axis inside the
// leading e×e×e sub-cube.
func (c *Compressor) sweep(e, axis int, step func(data []schema.Real, phase int)) {
	n := c.blockSize
	stride := [3]int{1, n, n * n}[axis]
	line := c.line[:e]

	for a := 0; a < e; a++ {
		for b := 0; b < e; b++ {
			var base int
			switch axis {
			case 0:
				base = a*n + b*n*n
			case 1:
				base = a + b*n*n
			default:
				base = a + b*n
			}

			for k := range line {
				line[k] = c.coeffs[base+k*stride]
			}

			step(line, 0)

			for k := range line {
				c.coeffs[base+k*stride] = line[k]
			}
		}
	}
}
