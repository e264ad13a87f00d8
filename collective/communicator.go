// Package collective provides the message-passing primitives the dump writer
// is built on: a rank-addressed communicator with collective reductions and a
// shared file with independent, collective and split-collective writes.
package collective

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Communicator is one rank's view of a process group. Every collective call
// must be made by all ranks in the same order.
type Communicator interface {
	Rank() int
	Size() int

	// Allgather contributes v and returns the values of all ranks, indexed by
	// rank. The returned slice is shared and must not be modified.
	Allgather(ctx context.Context, v any) ([]any, error)
}

var ErrTypeMismatch = errors.New("collective: ranks contributed different types")

// Allgather is the typed form of Communicator.Allgather.
func Allgather[T any](ctx context.Context, c Communicator, v T) ([]T, error) {
	raw, err := c.Allgather(ctx, v)
	if err != nil {
		return nil, err
	}

	res := make([]T, len(raw))
	for i, r := range raw {
		typed, ok := r.(T)
		if !ok {
			return nil, errors.Wrapf(ErrTypeMismatch, "rank %d sent %T", i, r)
		}
		res[i] = typed
	}
	return res, nil
}

func Barrier(ctx context.Context, c Communicator) error {
	_, err := c.Allgather(ctx, struct{}{})
	return err
}

// Bcast returns root's value on every rank.
func Bcast[T any](ctx context.Context, c Communicator, root int, v T) (T, error) {
	var zero T

	if root < 0 || root >= c.Size() {
		return zero, errors.Newf("collective: bcast root %d outside of %d ranks", root, c.Size())
	}

	all, err := Allgather(ctx, c, v)
	if err != nil {
		return zero, err
	}
	return all[root], nil
}

// Exscan returns the sum of v over all lower ranks; rank 0 gets 0.
func Exscan(ctx context.Context, c Communicator, v uint64) (uint64, error) {
	all, err := Allgather(ctx, c, v)
	if err != nil {
		return 0, err
	}

	var sum uint64
	for _, x := range all[:c.Rank()] {
		sum += x
	}
	return sum, nil
}

type Stats struct {
	Min, Max, Sum float64
}

func (s Stats) Avg(n int) float64 {
	if n == 0 {
		return 0
	}
	return s.Sum / float64(n)
}

// Imbalance is (max-min)/avg, zero when avg is zero.
func (s Stats) Imbalance(n int) float64 {
	avg := s.Avg(n)
	if avg == 0 {
		return 0
	}
	return (s.Max - s.Min) / avg
}

// AllreduceMinMaxSum reduces v over all ranks.
func AllreduceMinMaxSum(ctx context.Context, c Communicator, v float64) (Stats, error) {
	return ReduceStats(ctx, c, Stats{Min: v, Max: v, Sum: v})
}

// ReduceStats merges partial statistics of every rank.
func ReduceStats(ctx context.Context, c Communicator, local Stats) (Stats, error) {
	all, err := Allgather(ctx, c, local)
	if err != nil {
		return Stats{}, err
	}

	s := all[0]
	for _, x := range all[1:] {
		s.Min = min(s.Min, x.Min)
		s.Max = max(s.Max, x.Max)
		s.Sum += x.Sum
	}
	return s, nil
}

func AllreduceSum(ctx context.Context, c Communicator, v uint64) (uint64, error) {
	all, err := Allgather(ctx, c, v)
	if err != nil {
		return 0, err
	}

	var sum uint64
	for _, x := range all {
		sum += x
	}
	return sum, nil
}

// AllEqual reports whether every rank contributed the same value.
func AllEqual[T comparable](ctx context.Context, c Communicator, v T) (bool, error) {
	all, err := Allgather(ctx, c, v)
	if err != nil {
		return false, err
	}

	for _, x := range all {
		if x != all[0] {
			return false, nil
		}
	}
	return true, nil
}
