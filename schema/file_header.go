package schema

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/dot5enko/wavdump/bits"
)

// Section titles of a dump. They are part of the wire format.
const (
	OceanTitle = "\n==============START-BINARY-OCEAN==============\n"
	LUTTitle   = "\n==============START-BINARY-LUT==============\n"

	headerBegin     = "==============START-ASCI-HEADER=============="
	metablocksBegin = "==============START-BINARY-METABLOCKS=============="
	MiniHeaderSize  = SizeofSizeT + len(OceanTitle)
)

// FileHeader is the ASCII header of a dump. Field order and spelling of the
// text form are fixed; ParseFileHeader reads back exactly what Format writes.
type FileHeader struct {
	Endianness            string
	SizeofReal            int
	SizeofSizeT           int
	SizeofBlockMetadata   int
	SizeofHeaderLUT       int
	SizeofCompressedBlock int

	BlockSize       int
	Blocks          [3]int
	Extent          [3]float64
	SubdomainBlocks [3]int

	HalfFloat bool
	Wavelets  string
	Threshold float64
	Encoder   string
}

// NewFileHeader fills the build constants of the running binary.
func NewFileHeader() FileHeader {
	return FileHeader{
		Endianness:            bits.HostEndianness(),
		SizeofReal:            SizeofReal,
		SizeofSizeT:           SizeofSizeT,
		SizeofBlockMetadata:   BlockMetadataSize,
		SizeofHeaderLUT:       HeaderLUTSize,
		SizeofCompressedBlock: CompressedChunkSize,
	}
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (h *FileHeader) Format() string {
	var sb strings.Builder

	sb.WriteString("\n" + headerBegin + "\n")
	fmt.Fprintf(&sb, "Endianess: %s\n", h.Endianness)
	fmt.Fprintf(&sb, "sizeofReal: %d\n", h.SizeofReal)
	fmt.Fprintf(&sb, "sizeofsize_t: %d\n", h.SizeofSizeT)
	fmt.Fprintf(&sb, "sizeofBlockMetadata: %d\n", h.SizeofBlockMetadata)
	fmt.Fprintf(&sb, "sizeofHeaderLUT: %d\n", h.SizeofHeaderLUT)
	fmt.Fprintf(&sb, "sizeofCompressedBlock: %d\n", h.SizeofCompressedBlock)
	fmt.Fprintf(&sb, "Blocksize: %d\n", h.BlockSize)
	fmt.Fprintf(&sb, "Blocks: %d x %d x %d\n", h.Blocks[0], h.Blocks[1], h.Blocks[2])
	fmt.Fprintf(&sb, "Extent: %s %s %s\n", formatReal(h.Extent[0]), formatReal(h.Extent[1]), formatReal(h.Extent[2]))
	fmt.Fprintf(&sb, "SubdomainBlocks: %d x %d x %d\n", h.SubdomainBlocks[0], h.SubdomainBlocks[1], h.SubdomainBlocks[2])
	fmt.Fprintf(&sb, "HalfFloat: %s\n", yesNo(h.HalfFloat))
	fmt.Fprintf(&sb, "Wavelets: %s\n", h.Wavelets)
	fmt.Fprintf(&sb, "WaveletThreshold: %s\n", formatReal(h.Threshold))
	fmt.Fprintf(&sb, "Encoder: %s\n", h.Encoder)
	sb.WriteString(metablocksBegin + "\n")

	return sb.String()
}

func (h *FileHeader) TotalBlocks() int {
	return h.Blocks[0] * h.Blocks[1] * h.Blocks[2]
}

func (h *FileHeader) BlocksPerSubdomain() int {
	return h.SubdomainBlocks[0] * h.SubdomainBlocks[1] * h.SubdomainBlocks[2]
}

// Subdomains returns the number of ranks that wrote the dump.
func (h *FileHeader) Subdomains() (int, error) {
	bps := h.BlocksPerSubdomain()
	if bps <= 0 || h.TotalBlocks()%bps != 0 {
		return 0, CorruptionErrorf("blocks %v are not a multiple of subdomain blocks %v", h.Blocks, h.SubdomainBlocks)
	}
	return h.TotalBlocks() / bps, nil
}

type headerScanner struct {
	r *bufio.Reader
}

func (s headerScanner) line() (string, error) {
	l, err := s.r.ReadString('\n')
	if err != nil {
		return "", CorruptionErrorf("truncated ascii header: %s", err.Error())
	}
	return strings.TrimSuffix(l, "\n"), nil
}

func (s headerScanner) field(prefix string) (string, error) {
	l, err := s.line()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(l, prefix) {
		return "", CorruptionErrorf("expected header field %q, got %q", prefix, l)
	}
	return strings.TrimPrefix(l, prefix), nil
}

func (s headerScanner) intField(prefix string, out *int) error {
	v, err := s.field(prefix)
	if err != nil {
		return err
	}
	*out, err = strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return CorruptionErrorf("bad value for %q: %s", prefix, err.Error())
	}
	return nil
}

func (s headerScanner) tripleField(prefix string, out *[3]int) error {
	v, err := s.field(prefix)
	if err != nil {
		return err
	}
	if _, err = fmt.Sscanf(v, "%d x %d x %d", &out[0], &out[1], &out[2]); err != nil {
		return CorruptionErrorf("bad value for %q: %s", prefix, err.Error())
	}
	return nil
}

// ParseFileHeader reads the ASCII header starting at its leading newline.
func ParseFileHeader(r *bufio.Reader) (h FileHeader, topErr error) {
	s := headerScanner{r: r}

	for _, want := range []string{"", headerBegin} {
		l, err := s.line()
		if err != nil {
			return h, err
		}
		if l != want {
			return h, CorruptionErrorf("expected %q, got %q", want, l)
		}
	}

	if h.Endianness, topErr = s.field("Endianess: "); topErr != nil {
		return h, topErr
	}

	ints := []struct {
		prefix string
		out    *int
	}{
		{"sizeofReal: ", &h.SizeofReal},
		{"sizeofsize_t: ", &h.SizeofSizeT},
		{"sizeofBlockMetadata: ", &h.SizeofBlockMetadata},
		{"sizeofHeaderLUT: ", &h.SizeofHeaderLUT},
		{"sizeofCompressedBlock: ", &h.SizeofCompressedBlock},
		{"Blocksize: ", &h.BlockSize},
	}
	for _, f := range ints {
		if topErr = s.intField(f.prefix, f.out); topErr != nil {
			return h, topErr
		}
	}

	if topErr = s.tripleField("Blocks: ", &h.Blocks); topErr != nil {
		return h, topErr
	}

	extent, err := s.field("Extent: ")
	if err != nil {
		return h, err
	}
	if _, err = fmt.Sscanf(extent, "%g %g %g", &h.Extent[0], &h.Extent[1], &h.Extent[2]); err != nil {
		return h, CorruptionErrorf("bad value for extent: %s", err.Error())
	}

	if topErr = s.tripleField("SubdomainBlocks: ", &h.SubdomainBlocks); topErr != nil {
		return h, topErr
	}

	half, err := s.field("HalfFloat: ")
	if err != nil {
		return h, err
	}
	h.HalfFloat = half == "yes"

	if h.Wavelets, topErr = s.field("Wavelets: "); topErr != nil {
		return h, topErr
	}

	threshold, err := s.field("WaveletThreshold: ")
	if err != nil {
		return h, err
	}
	if h.Threshold, err = strconv.ParseFloat(threshold, 64); err != nil {
		return h, CorruptionErrorf("bad wavelet threshold: %s", err.Error())
	}

	if h.Encoder, topErr = s.field("Encoder: "); topErr != nil {
		return h, topErr
	}

	l, err := s.line()
	if err != nil {
		return h, err
	}
	if l != metablocksBegin {
		return h, CorruptionErrorf("expected %q, got %q", metablocksBegin, l)
	}

	return h, nil
}

// MaxBlocksPerDimension bounds header block counts so their product cannot
// overflow.
const MaxBlocksPerDimension = 1 << 20

// Expectation is the configuration a reader was built for. Zero-valued
// BlockSize, Wavelets or Encoder accept whatever the file declares.
type Expectation struct {
	BlockSize int
	Wavelets  string
	Encoder   string
}

// Verify checks every recorded build constant against the running binary.
func (h *FileHeader) Verify(expect Expectation) error {
	own := NewFileHeader()

	if h.Endianness != own.Endianness {
		return CorruptionErrorf("dump is %s endian, host is %s endian", h.Endianness, own.Endianness)
	}

	sizes := []struct {
		name      string
		got, want int
	}{
		{"sizeofReal", h.SizeofReal, own.SizeofReal},
		{"sizeofsize_t", h.SizeofSizeT, own.SizeofSizeT},
		{"sizeofBlockMetadata", h.SizeofBlockMetadata, own.SizeofBlockMetadata},
		{"sizeofHeaderLUT", h.SizeofHeaderLUT, own.SizeofHeaderLUT},
		{"sizeofCompressedBlock", h.SizeofCompressedBlock, own.SizeofCompressedBlock},
	}
	for _, s := range sizes {
		if s.got != s.want {
			return CorruptionErrorf("%s mismatch: dump %d, build %d", s.name, s.got, s.want)
		}
	}

	if expect.BlockSize != 0 && h.BlockSize != expect.BlockSize {
		return CorruptionErrorf("block size mismatch: dump %d, build %d", h.BlockSize, expect.BlockSize)
	}
	if h.BlockSize <= 0 {
		return CorruptionErrorf("invalid block size %d", h.BlockSize)
	}
	if expect.Wavelets != "" && h.Wavelets != expect.Wavelets {
		return CorruptionErrorf("wavelet mismatch: dump %q, build %q", h.Wavelets, expect.Wavelets)
	}
	if expect.Encoder != "" && h.Encoder != expect.Encoder {
		return CorruptionErrorf("encoder mismatch: dump %q, build %q", h.Encoder, expect.Encoder)
	}

	for d := 0; d < 3; d++ {
		if h.Blocks[d] <= 0 || h.SubdomainBlocks[d] <= 0 || h.Blocks[d] > MaxBlocksPerDimension {
			return CorruptionErrorf("invalid block counts %v / %v", h.Blocks, h.SubdomainBlocks)
		}
	}

	return nil
}
