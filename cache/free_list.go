package cache

import (
	"context"
	"fmt"
	"math"
)

// freeList hands out slot ids in [0, n). Taking blocks while every slot is out.
type freeList chan uint16

func newFreeList(n int) freeList {
	if n > math.MaxUint16+1 {
		panic(fmt.Sprintf("cache: %d slots exceed the uint16 slot id range", n))
	}

	f := make(freeList, n)
	for i := 0; i < n; i++ {
		f <- uint16(i)
	}
	return f
}

func (f freeList) take() uint16 {
	return <-f
}

func (f freeList) takeContext(ctx context.Context) (uint16, error) {
	select {
	case id := <-f:
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (f freeList) give(id uint16) {
	f <- id
}
