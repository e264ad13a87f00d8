package schema

import (
	"github.com/dot5enko/wavdump/bits"
)

const BlockMetadataSize = 6 * 4

// BlockMetadata locates one compressed block of one channel.
//
// BlockID is the rank-local sequence number of the block, IX/IY/IZ its global
// grid coordinates. IDCompression names the chunk holding the block and SubID
// its position inside that chunk once decoded. On disk IDCompression is local
// to the writing rank.
type BlockMetadata struct {
	BlockID       int32
	SubID         int32
	IX, IY, IZ    int32
	IDCompression int32
}

func (m *BlockMetadata) WriteTo(bw *bits.BitWriter) (int, error) {
	start := bw.Position()

	bw.PutInt32(m.BlockID)
	bw.PutInt32(m.SubID)
	bw.PutInt32(m.IX)
	bw.PutInt32(m.IY)
	bw.PutInt32(m.IZ)
	bw.PutInt32(m.IDCompression)

	return bw.Position() - start, nil
}

func (m *BlockMetadata) FromBytes(reader *bits.BitsReader) (topErr error) {
	fields := []*int32{&m.BlockID, &m.SubID, &m.IX, &m.IY, &m.IZ, &m.IDCompression}

	for _, field := range fields {
		*field, topErr = reader.ReadI32()
		if topErr != nil {
			return CorruptionErrorf("unable to decode block metadata: %s", topErr.Error())
		}
	}

	return nil
}

// Coords returns the global block coordinates.
func (m *BlockMetadata) Coords() [3]int {
	return [3]int{int(m.IX), int(m.IY), int(m.IZ)}
}

// EncodeBlockMetadata serializes a rank's metadata array in rank-local order.
func EncodeBlockMetadata(blocks []BlockMetadata) []byte {
	bw := bits.NewEncodeBuffer(make([]byte, len(blocks)*BlockMetadataSize), bits.HostOrder)

	for i := range blocks {
		blocks[i].WriteTo(&bw)
	}

	return bw.Bytes()
}
