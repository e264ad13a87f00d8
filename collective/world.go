package collective

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// World is an in-process group of ranks, each running on its own goroutine.
type World struct {
	size int

	mu      sync.Mutex
	current *round
}

type round struct {
	vals    []any
	arrived int
	done    chan struct{}
}

func NewWorld(size int) *World {
	return &World{size: size}
}

func (w *World) Size() int {
	return w.size
}

// Run calls fn once per rank and waits for all of them. The first error
// cancels the context seen by the other ranks, releasing any rank blocked in
// a collective.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, comm Communicator) error) error {
	if w.size <= 0 {
		return errors.Newf("collective: world of %d ranks", w.size)
	}

	g, gctx := errgroup.WithContext(ctx)

	for rank := 0; rank < w.size; rank++ {
		comm := &rankComm{world: w, rank: rank}
		g.Go(func() error {
			return fn(gctx, comm)
		})
	}

	err := g.Wait()

	// a failed run may leave a half-filled round behind
	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()

	return err
}

func (w *World) allgather(ctx context.Context, rank int, v any) ([]any, error) {
	w.mu.Lock()
	if w.current == nil {
		w.current = &round{
			vals: make([]any, w.size),
			done: make(chan struct{}),
		}
	}

	r := w.current
	r.vals[rank] = v
	r.arrived++

	if r.arrived == w.size {
		w.current = nil
		close(r.done)
	}
	w.mu.Unlock()

	select {
	case <-r.done:
		return r.vals, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type rankComm struct {
	world *World
	rank  int
}

func (c *rankComm) Rank() int { return c.rank }
func (c *rankComm) Size() int { return c.world.size }

func (c *rankComm) Allgather(ctx context.Context, v any) ([]any, error) {
	return c.world.allgather(ctx, c.rank, v)
}
