package schema

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/dot5enko/wavdump/bits"
	"github.com/stretchr/testify/require"
)

func sampleHeader() FileHeader {
	h := NewFileHeader()
	h.BlockSize = 4
	h.Blocks = [3]int{2, 1, 1}
	h.Extent = [3]float64{0.875, 0.375, 0.375}
	h.SubdomainBlocks = [3]int{1, 1, 1}
	h.Wavelets = "cdf97-lifting"
	h.Threshold = 1e-3
	h.Encoder = "zlib"
	return h
}

func TestFileHeaderText(t *testing.T) {
	h := sampleHeader()
	text := h.Format()

	require.True(t, strings.HasPrefix(text, "\n==============START-ASCI-HEADER==============\n"))
	require.True(t, strings.HasSuffix(text, "==============START-BINARY-METABLOCKS==============\n"))
	require.Contains(t, text, "\nBlocksize: 4\n")
	require.Contains(t, text, "\nBlocks: 2 x 1 x 1\n")
	require.Contains(t, text, "\nWaveletThreshold: 0.001\n")
	require.Contains(t, text, "\nHalfFloat: no\n")
	require.Contains(t, text, "\nsizeofBlockMetadata: 24\n")
}

func TestFileHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	h.HalfFloat = true

	parsed, err := ParseFileHeader(bufio.NewReader(strings.NewReader(h.Format())))
	require.NoError(t, err)
	require.Equal(t, h, parsed)
	require.NoError(t, parsed.Verify(Expectation{BlockSize: 4, Wavelets: "cdf97-lifting", Encoder: "zlib"}))

	n, err := parsed.Subdomains()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestFileHeaderVerifyMismatch(t *testing.T) {
	h := sampleHeader()

	for name, expect := range map[string]Expectation{
		"blocksize": {BlockSize: 8},
		"wavelets":  {Wavelets: "haar"},
		"encoder":   {Encoder: "lz4"},
	} {
		t.Run(name, func(t *testing.T) {
			err := h.Verify(expect)
			require.Error(t, err)
			require.True(t, IsCorruptionError(err))
		})
	}

	huge := sampleHeader()
	huge.Blocks[0] = MaxBlocksPerDimension + 1
	require.True(t, IsCorruptionError(huge.Verify(Expectation{})))

	h.SizeofReal = 8
	require.True(t, IsCorruptionError(h.Verify(Expectation{})))
}

func TestParseFileHeaderRejectsReorderedFields(t *testing.T) {
	h := sampleHeader()
	text := strings.Replace(h.Format(), "Blocksize: 4\n", "", 1)

	_, err := ParseFileHeader(bufio.NewReader(strings.NewReader(text)))
	require.True(t, IsCorruptionError(err))

	_, err = ParseFileHeader(bufio.NewReader(strings.NewReader(h.Format()[:40])))
	require.True(t, IsCorruptionError(err))
}

func TestRecordsRoundTrip(t *testing.T) {
	blocks := []BlockMetadata{
		{BlockID: 0, SubID: 1, IX: 2, IY: 3, IZ: 4, IDCompression: 5},
		{BlockID: 1, SubID: 0, IX: 7, IY: 0, IZ: 1, IDCompression: 6},
	}

	raw := EncodeBlockMetadata(blocks)
	require.Len(t, raw, 2*BlockMetadataSize)

	r := bits.NewReader(bytes.NewReader(raw), bits.HostOrder)
	for _, want := range blocks {
		var got BlockMetadata
		require.NoError(t, got.FromBytes(r))
		require.Equal(t, want, got)
	}

	lut := HeaderLUT{AggregateBytes: 1234, NChunks: 3}
	raw = lut.Encode()
	require.Len(t, raw, HeaderLUTSize)

	var back HeaderLUT
	require.NoError(t, back.FromBytes(bits.NewReader(bytes.NewReader(raw), bits.HostOrder)))
	require.Equal(t, lut, back)
	require.Equal(t, uint64(24), back.LUTBytes())
}

func TestChannelPath(t *testing.T) {
	require.Equal(t, "out/data_0001.velocity.channel2", ChannelPath("out/data_0001", "velocity", 2))
}
