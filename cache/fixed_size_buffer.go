package cache

import "context"

// FixedSizeBufferPool hands out equally sized slices carved from one arena.
// Get blocks until a buffer is returned when all of them are in use.
type FixedSizeBufferPool struct {
	arena   []byte
	bufSize int
	free    freeList
}

func NewFixedSizeBufferPool(n int, bufSize int) *FixedSizeBufferPool {
	n = max(n, 1)

	return &FixedSizeBufferPool{
		arena:   make([]byte, n*bufSize),
		bufSize: bufSize,
		free:    newFreeList(n),
	}
}

// slot caps the buffer at its own end so appends never spill into a neighbour.
func (p *FixedSizeBufferPool) slot(id uint16) []byte {
	start := int(id) * p.bufSize
	end := start + p.bufSize
	return p.arena[start:end:end]
}

func (p *FixedSizeBufferPool) BufSize() int {
	return p.bufSize
}

func (p *FixedSizeBufferPool) Get() ([]byte, uint16) {
	id := p.free.take()
	return p.slot(id), id
}

// GetContext is Get that gives up when ctx is done.
func (p *FixedSizeBufferPool) GetContext(ctx context.Context) ([]byte, uint16, error) {
	id, err := p.free.takeContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	return p.slot(id), id, nil
}

func (p *FixedSizeBufferPool) Return(id uint16) {
	p.free.give(id)
}

// Available reports how many buffers are not handed out.
func (p *FixedSizeBufferPool) Available() int {
	return len(p.free)
}
