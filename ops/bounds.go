// Package ops holds small numeric helpers over value slices.
package ops

type NumericTypes interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint32 | ~uint64
}

// Bounds is the closed value range of a set.
type Bounds[T NumericTypes] struct {
	Min T
	Max T
}

// Morph widens b to also cover other.
func (b *Bounds[T]) Morph(other Bounds[T]) {
	if other.Min < b.Min {
		b.Min = other.Min
	}
	if other.Max > b.Max {
		b.Max = other.Max
	}
}

func (b Bounds[T]) Span() T {
	return b.Max - b.Min
}

// MinMax returns the bounds of arr, false when arr is empty.
func MinMax[T NumericTypes](arr []T) (Bounds[T], bool) {
	if len(arr) == 0 {
		return Bounds[T]{}, false
	}

	res := Bounds[T]{
		Min: arr[0],
		Max: arr[0],
	}

	for _, v := range arr[1:] {
		if v < res.Min {
			res.Min = v
		}
		if v > res.Max {
			res.Max = v
		}
	}
	return res, true
}
