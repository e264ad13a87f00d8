package compression

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4/v4"
)

type lz4Encoder struct{}

var _ Encoder = lz4Encoder{}

func (lz4Encoder) Name() string { return LZ4Name }

func (lz4Encoder) Compress(dst, src []byte) ([]byte, error) {
	output := bytes.NewBuffer(dst[:0])
	zw := lz4.NewWriter(output)

	if _, err := zw.Write(src); err != nil {
		return nil, errors.Wrap(err, "lz4 compression")
	}

	if err := zw.Flush(); err != nil {
		return nil, errors.Wrap(err, "lz4 compression")
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "lz4 compression")
	}

	return output.Bytes(), nil
}

func (lz4Encoder) Decompress(dst, src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))

	out, err := readAllInto(dst, zr)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 decompression")
	}
	return out, nil
}
