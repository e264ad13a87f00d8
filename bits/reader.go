package bits

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	ErrEOF          = errors.New("end of file")
	ErrReadMismatch = errors.New("read size mismatch")
)

const MaxBinReaderBufferSize = 8

type BitsReader struct {
	readBuffer [MaxBinReaderBufferSize]byte

	buf   io.Reader
	order binary.ByteOrder
}

func NewReader(buf io.Reader, order binary.ByteOrder) *BitsReader {
	return &BitsReader{buf: buf, order: order}
}

func (r *BitsReader) readNextBytesIntoReadBuffer(size int) error {
	_, err := io.ReadFull(r.buf, r.readBuffer[:size])

	switch {
	case err == io.EOF:
		return ErrEOF
	case err == io.ErrUnexpectedEOF:
		return ErrReadMismatch
	case err != nil:
		return err
	}

	return nil
}

func (r *BitsReader) ReadU32() (uint32, error) {
	if err := r.readNextBytesIntoReadBuffer(4); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.readBuffer[:4]), nil
}

func (r *BitsReader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *BitsReader) ReadU64() (uint64, error) {
	if err := r.readNextBytesIntoReadBuffer(8); err != nil {
		return 0, err
	}
	return r.order.Uint64(r.readBuffer[:8]), nil
}

func (r *BitsReader) ReadBytes(n int, out []byte) error {
	readBytes, err := io.ReadFull(r.buf, out[:n])

	if readBytes != n {
		return ErrReadMismatch
	}

	return err
}

// Skip discards n bytes, used for struct padding.
func (r *BitsReader) Skip(n int) error {
	var pad [MaxBinReaderBufferSize]byte
	for n > 0 {
		step := min(n, len(pad))
		if err := r.ReadBytes(step, pad[:]); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
