package compression

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Encoder is the generic byte compressor applied to whole chunks of
// wavelet-compressed blocks. Its Name is recorded in dump headers.
type Encoder interface {
	Name() string

	// Compress appends the encoded form of src to dst[:0].
	Compress(dst, src []byte) ([]byte, error)

	// Decompress decodes src into dst[:cap(dst)] and returns the filled prefix.
	// A payload that does not fit into dst is an error.
	Decompress(dst, src []byte) ([]byte, error)
}

var ErrScratchTooSmall = errors.New("compression: decoded chunk exceeds scratch buffer")

const (
	ZlibName = "zlib"
	LZ4Name  = "lz4"
	ZstdName = "zstd"
)

// DefaultName is the encoder used when none is configured.
const DefaultName = ZlibName

func ByName(name string) (Encoder, error) {
	switch name {
	case ZlibName, "":
		return zlibEncoder{}, nil
	case LZ4Name:
		return lz4Encoder{}, nil
	case ZstdName:
		return getZstdEncoder(), nil
	default:
		return nil, errors.Newf("compression: unknown encoder %q", name)
	}
}

// Names lists the supported encoders.
func Names() []string {
	return []string{ZlibName, LZ4Name, ZstdName}
}

// readAllInto drains a streaming decoder into dst without growing it.
func readAllInto(dst []byte, r io.Reader) ([]byte, error) {
	buf := dst[:cap(dst)]

	n, err := io.ReadFull(r, buf)
	switch err {
	case io.EOF, io.ErrUnexpectedEOF:
		return buf[:n], nil
	case nil:
	default:
		return nil, err
	}

	var probe [1]byte
	if extra, _ := r.Read(probe[:]); extra > 0 {
		return nil, ErrScratchTooSmall
	}
	return buf[:n], nil
}
