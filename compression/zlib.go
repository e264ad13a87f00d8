package compression

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

type zlibEncoder struct{}

var _ Encoder = zlibEncoder{}

func (zlibEncoder) Name() string { return ZlibName }

func (zlibEncoder) Compress(dst, src []byte) ([]byte, error) {
	output := bytes.NewBuffer(dst[:0])

	zw, err := zlib.NewWriterLevel(output, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}

	if _, err := zw.Write(src); err != nil {
		return nil, errors.Wrap(err, "zlib compression")
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "zlib compression")
	}

	return output.Bytes(), nil
}

func (zlibEncoder) Decompress(dst, src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "zlib decompression")
	}
	defer zr.Close()

	out, err := readAllInto(dst, zr)
	if err != nil {
		return nil, errors.Wrap(err, "zlib decompression")
	}
	return out, nil
}
