package bits

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestBitfieldSetAndCount(t *testing.T) {

	b := NewBitfield(130)

	if len(b) != 3 {
		t.Fatalf("expected 3 words, got %d", len(b))
	}

	b.Set(0)
	b.Set(64)
	b.Set(129)
	b.Set(64)

	if b.Count() != 3 {
		t.Errorf("expected 3 bits set, got %d", b.Count())
	}

	var got []int
	b.ForEach(func(bit int) { got = append(got, bit) })

	if len(got) != 3 || got[0] != 0 || got[1] != 64 || got[2] != 129 {
		t.Errorf("expected ascending [0 64 129], got %v", got)
	}

	b.Reset()
	if b.Count() != 0 {
		t.Errorf("expected empty bitfield after reset")
	}
}

func TestWriterReaderRecords(t *testing.T) {

	w := NewEncodeBuffer(make([]byte, 32), binary.LittleEndian)

	w.PutInt32(-7)
	w.PutUint64(1 << 40)
	w.PutFloat32(1.5)
	w.EmptyBytes(3)
	w.PutUint16(9)
	w.WriteString("ab")

	if w.Position() != 4+8+4+3+2+2 {
		t.Fatalf("unexpected position %d", w.Position())
	}

	r := NewReader(bytes.NewReader(w.Bytes()), binary.LittleEndian)

	if v, _ := r.ReadI32(); v != -7 {
		t.Errorf("expected -7, got %d", v)
	}
	if v, _ := r.ReadU64(); v != 1<<40 {
		t.Errorf("expected 1<<40, got %d", v)
	}
	if v, _ := r.ReadU32(); math.Float32frombits(v) != 1.5 {
		t.Errorf("expected 1.5, got %v", math.Float32frombits(v))
	}
	if err := r.Skip(3); err != nil {
		t.Errorf("unexpected skip error %v", err)
	}

	tail := make([]byte, 4)
	if err := r.ReadBytes(4, tail); err != nil {
		t.Fatalf("unexpected read error %v", err)
	}
	if binary.LittleEndian.Uint16(tail) != 9 || string(tail[2:]) != "ab" {
		t.Errorf("unexpected tail %v", tail)
	}

	if _, err := r.ReadU32(); err != ErrEOF {
		t.Errorf("expected ErrEOF at the end, got %v", err)
	}
}

func TestReaderShortRead(t *testing.T) {

	r := NewReader(bytes.NewReader([]byte{1, 2, 3}), binary.LittleEndian)

	if _, err := r.ReadU64(); err != ErrReadMismatch {
		t.Errorf("expected ErrReadMismatch, got %v", err)
	}
}

func TestWriterPanicsWhenFull(t *testing.T) {

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on overflow")
		}
	}()

	w := NewEncodeBuffer(make([]byte, 2), binary.LittleEndian)
	w.PutUint32(1)
}
