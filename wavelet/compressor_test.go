package wavelet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dot5enko/wavdump/schema"
)

func fillSmooth(c *Compressor) {
	n := c.BlockSize()
	data := c.Uncompressed()
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				data[x+n*(y+n*z)] = schema.Real(1 + 0.5*math.Sin(float64(x)*0.3) + 0.1*float64(y) - 0.05*float64(z*z))
			}
		}
	}
}

func requireClose(t *testing.T, want, got []schema.Real, tol float64) {
	t.Helper()
	for i := range want {
		if d := math.Abs(float64(want[i] - got[i])); d > tol {
			t.Fatalf("value %d: want %v got %v (diff %v)", i, want[i], got[i], d)
		}
	}
}

func TestRoundTripZeroThreshold(t *testing.T) {
	for _, bs := range []int{1, 4, 7, 8, 16} {
		for _, half := range []bool{false, true} {
			c := NewCompressor(bs)
			fillSmooth(c)
			want := append([]schema.Real(nil), c.Uncompressed()...)

			size := c.Compress(0, half)
			require.LessOrEqual(t, size, MaxCompressedSize(bs))
			require.Equal(t, size, len(c.CompressedData()))

			payload := append([]byte(nil), c.CompressedData()...)
			out := make([]schema.Real, bs*bs*bs)
			require.NoError(t, NewCompressor(bs).Decompress(half, payload, out))

			tol := 1e-4
			if half {
				tol = 5e-2
			}
			requireClose(t, want, out, tol)
		}
	}
}

func TestConstantBlockKeepsOnlyDC(t *testing.T) {
	c := NewCompressor(8)
	for i := range c.Uncompressed() {
		c.Uncompressed()[i] = 3
	}

	size := c.Compress(1e-3, false)
	require.Equal(t, countSize+8*8+4, size)

	out := make([]schema.Real, 512)
	require.NoError(t, c.Decompress(false, c.CompressedData(), out))
	requireClose(t, c.Uncompressed(), out, 1e-4)
}

func TestThresholdShrinksPayload(t *testing.T) {
	c := NewCompressor(16)
	fillSmooth(c)

	full := c.Compress(0, false)
	decimated := c.Compress(0.5, false)
	require.Less(t, decimated, full)
}

func TestDecompressRejectsCorruptPayload(t *testing.T) {
	c := NewCompressor(4)
	fillSmooth(c)
	c.Compress(0, false)
	payload := append([]byte(nil), c.CompressedData()...)
	out := make([]schema.Real, 64)

	err := c.Decompress(false, payload[:10], out)
	require.True(t, schema.IsCorruptionError(err))

	err = c.Decompress(false, payload[:len(payload)-1], out)
	require.True(t, schema.IsCorruptionError(err))

	payload[0]++
	err = c.Decompress(false, payload, out)
	require.True(t, schema.IsCorruptionError(err))

	err = c.Decompress(false, c.CompressedData(), out[:3])
	require.True(t, schema.IsCorruptionError(err))
}

func TestLevels(t *testing.T) {
	require.Equal(t, []int{8, 4, 2}, levels(8))
	require.Equal(t, []int{7, 4, 2}, levels(7))
	require.Nil(t, levels(1))
}
