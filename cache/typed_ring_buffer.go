package cache

// TypedRingBuffer keeps n reusable values of T. Slots keep their state
// between Get calls so large inner buffers are allocated once.
type TypedRingBuffer[T any] struct {
	slots []T
	free  freeList
}

func NewTypedRingBuffer[T any](n int, init func(*T)) *TypedRingBuffer[T] {
	r := &TypedRingBuffer[T]{
		slots: make([]T, n),
		free:  newFreeList(n),
	}

	if init != nil {
		for i := range r.slots {
			init(&r.slots[i])
		}
	}
	return r
}

func (r *TypedRingBuffer[T]) Get() (*T, uint16) {
	id := r.free.take()
	return &r.slots[id], id
}

func (r *TypedRingBuffer[T]) Return(id uint16) {
	r.free.give(id)
}

func (r *TypedRingBuffer[T]) Len() int {
	return len(r.slots)
}
