package schema

const CompressedChunkSize = 8 + 8 + 4 + 4

// CompressedChunk tells where the bytes of one block live in a dump: the
// encoded chunk spans [Start, Start+Extent) in the file and the block is the
// SubID-th length-prefixed entry of the decoded chunk.
type CompressedChunk struct {
	Start  uint64
	Extent uint64
	SubID  int32
}

func (c CompressedChunk) End() uint64 {
	return c.Start + c.Extent
}
