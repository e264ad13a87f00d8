package bits

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sys/cpu"
)

// HostOrder is the byte order every binary record of a dump is written in.
// The ASCII header declares it so a reader on a foreign machine can refuse the file.
var HostOrder binary.ByteOrder = hostOrder()

func hostOrder() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// HostEndianness is the header spelling of HostOrder.
func HostEndianness() string {
	if cpu.IsBigEndian {
		return "big"
	}
	return "little"
}

type BitWriter struct {
	pos   int
	data  []byte
	order binary.ByteOrder
}

func NewEncodeBuffer(buf []byte, order binary.ByteOrder) BitWriter {
	return BitWriter{
		data:  buf,
		order: order,
	}
}

func (w *BitWriter) Reset() {
	w.pos = 0
}

func (w *BitWriter) Position() int {
	return w.pos
}

// tryGrow panics when n more bytes do not fit, encode buffers are sized upfront.
func (w *BitWriter) tryGrow(n int) {
	if w.pos+n > len(w.data) {
		panic(fmt.Sprintf("bit writer overflow on pos : %d, writing %d, buffer size : %d", w.pos, n, len(w.data)))
	}
}

func (w *BitWriter) Write(p []byte) (n int, err error) {
	w.tryGrow(len(p))
	n = copy(w.data[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *BitWriter) WriteString(s string) (n int, err error) {
	w.tryGrow(len(s))
	n = copy(w.data[w.pos:], s)
	w.pos += n
	return n, nil
}

// EmptyBytes reserves i zero bytes, used for struct padding.
func (w *BitWriter) EmptyBytes(i int) {
	w.tryGrow(i)
	clear(w.data[w.pos : w.pos+i])
	w.pos += i
}

func (w *BitWriter) Bytes() []byte {
	return w.data[:w.pos]
}

func (w *BitWriter) PutUint16(v uint16) {
	w.tryGrow(2)
	w.order.PutUint16(w.data[w.pos:], v)
	w.pos += 2
}

func (w *BitWriter) PutUint32(v uint32) {
	w.tryGrow(4)
	w.order.PutUint32(w.data[w.pos:], v)
	w.pos += 4
}

func (w *BitWriter) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

func (w *BitWriter) PutUint64(v uint64) {
	w.tryGrow(8)
	w.order.PutUint64(w.data[w.pos:], v)
	w.pos += 8
}

func (w *BitWriter) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}
