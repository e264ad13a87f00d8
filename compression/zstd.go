package compression

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// zstdEncoder shares one encoder and one decoder; EncodeAll and DecodeAll are
// safe for concurrent use.
type zstdEncoder struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ Encoder = (*zstdEncoder)(nil)

var (
	zstdOnce   sync.Once
	zstdShared *zstdEncoder
)

func getZstdEncoder() *zstdEncoder {
	zstdOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(errors.Wrap(err, "zstd encoder"))
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(errors.Wrap(err, "zstd decoder"))
		}
		zstdShared = &zstdEncoder{enc: enc, dec: dec}
	})
	return zstdShared
}

func (*zstdEncoder) Name() string { return ZstdName }

func (z *zstdEncoder) Compress(dst, src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, dst[:0]), nil
}

func (z *zstdEncoder) Decompress(dst, src []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, dst[:0])
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompression")
	}
	if len(out) > cap(dst) {
		return nil, ErrScratchTooSmall
	}
	return out, nil
}
