package schema

// Real is the scalar type of every field value that goes through a dump.
type Real = float32

const (
	SizeofReal  = 4
	SizeofSizeT = 8
)
