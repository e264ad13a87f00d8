package schema

import (
	"github.com/dot5enko/wavdump/bits"
)

const HeaderLUTSize = 8 + 4 + 4 // aggregate bytes + chunk count + padding

// HeaderLUT summarizes what one rank put into the ocean: its byte count,
// including the chunk lookup table at the tail, and the number of chunks.
type HeaderLUT struct {
	AggregateBytes uint64
	NChunks        int32
}

func (h *HeaderLUT) WriteTo(bw *bits.BitWriter) (int, error) {
	start := bw.Position()

	bw.PutUint64(h.AggregateBytes)
	bw.PutInt32(h.NChunks)
	bw.EmptyBytes(4)

	return bw.Position() - start, nil
}

func (h *HeaderLUT) FromBytes(reader *bits.BitsReader) (topErr error) {
	h.AggregateBytes, topErr = reader.ReadU64()
	if topErr != nil {
		return CorruptionErrorf("unable to decode lut header aggregate bytes: %s", topErr.Error())
	}

	h.NChunks, topErr = reader.ReadI32()
	if topErr != nil {
		return CorruptionErrorf("unable to decode lut header chunk count: %s", topErr.Error())
	}

	if topErr = reader.Skip(4); topErr != nil {
		return CorruptionErrorf("unable to decode lut header padding: %s", topErr.Error())
	}

	return nil
}

// LUTBytes is the size of the chunk lookup table stored at the rank's ocean tail.
func (h *HeaderLUT) LUTBytes() uint64 {
	return uint64(h.NChunks) * SizeofSizeT
}

func (h *HeaderLUT) Encode() []byte {
	bw := bits.NewEncodeBuffer(make([]byte, HeaderLUTSize), bits.HostOrder)
	h.WriteTo(&bw)
	return bw.Bytes()
}
