package collective

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestReductions(t *testing.T) {
	w := NewWorld(4)

	err := w.Run(context.Background(), func(ctx context.Context, comm Communicator) error {
		rank := comm.Rank()

		off, err := Exscan(ctx, comm, uint64(rank+1))
		if err != nil {
			return err
		}
		// 0, 1, 1+2, 1+2+3
		want := uint64(rank * (rank + 1) / 2)
		if off != want {
			return errors.New("bad exscan")
		}

		total, err := Bcast(ctx, comm, comm.Size()-1, off+uint64(rank+1))
		if err != nil {
			return err
		}
		if total != 10 {
			return errors.New("bad bcast")
		}

		stats, err := AllreduceMinMaxSum(ctx, comm, float64(rank))
		if err != nil {
			return err
		}
		if stats.Min != 0 || stats.Max != 3 || stats.Sum != 6 || stats.Avg(4) != 1.5 {
			return errors.New("bad allreduce")
		}

		same, err := AllEqual(ctx, comm, rank%2)
		if err != nil {
			return err
		}
		if same {
			return errors.New("ranks differ")
		}

		return Barrier(ctx, comm)
	})
	require.NoError(t, err)
}

func TestRankFailureReleasesOthers(t *testing.T) {
	w := NewWorld(3)
	boom := errors.New("boom")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := w.Run(ctx, func(ctx context.Context, comm Communicator) error {
		if comm.Rank() == 1 {
			return boom
		}
		return Barrier(ctx, comm)
	})
	require.ErrorIs(t, err, boom)

	// the world stays usable afterwards
	require.NoError(t, w.Run(context.Background(), func(ctx context.Context, comm Communicator) error {
		return Barrier(ctx, comm)
	}))
}

func TestFileWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.bin")
	require.NoError(t, os.WriteFile(path, []byte("stale content that must vanish"), 0o644))

	w := NewWorld(3)
	err := w.Run(context.Background(), func(ctx context.Context, comm Communicator) error {
		f, err := OpenFile(ctx, comm, path)
		if err != nil {
			return err
		}

		rank := int64(comm.Rank())
		if err := f.WriteAtAll(ctx, []byte{byte('a' + rank)}, rank); err != nil {
			return err
		}

		req := f.IWriteAt([]byte{byte('A' + rank)}, 3+rank)
		if err := WaitAll(ctx, req); err != nil {
			return err
		}

		if err := f.WriteAtAllBegin([]byte{byte('0' + rank)}, 6+rank); err != nil {
			return err
		}
		if err := f.WriteAtAllBegin(nil, 0); !errors.Is(err, ErrSplitCollectivePending) {
			return errors.New("second split collective accepted")
		}
		if err := f.WriteAtAllEnd(ctx); err != nil {
			return err
		}

		return f.Close(ctx)
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abcABC012", string(got))
}
