package serializer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/wavdump/collective"
	"github.com/dot5enko/wavdump/io"
)

var errGroupLost = errors.New("process group lost")

// flakyComm is a single rank group whose collectives start failing after
// the first healthy calls.
type flakyComm struct {
	healthy int
	calls   int
}

func (c *flakyComm) Rank() int { return 0 }
func (c *flakyComm) Size() int { return 1 }

func (c *flakyComm) Allgather(_ context.Context, v any) ([]any, error) {
	c.calls++
	if c.calls > c.healthy {
		return nil, errGroupLost
	}
	return []any{v}, nil
}

// recordOpens captures every file a writer opens for the duration of the test.
func recordOpens(t *testing.T) *[]*collective.File {
	t.Helper()

	var opened []*collective.File
	orig := openFile
	openFile = func(ctx context.Context, comm collective.Communicator, path string) (*collective.File, error) {
		f, err := orig(ctx, comm, path)
		if err == nil {
			opened = append(opened, f)
		}
		return f, err
	}
	t.Cleanup(func() { openFile = orig })

	return &opened
}

func TestWritersReleaseFileWhenPlacementFails(t *testing.T) {
	writers := map[string]FileWriter{
		"blocking":  BlockingWriter{},
		"pipelined": &PipelinedWriter{},
	}

	for name, w := range writers {
		t.Run(name, func(t *testing.T) {
			opened := recordOpens(t)
			path := filepath.Join(t.TempDir(), "dump")

			// the open broadcast succeeds, the layout exscan does not
			comm := &flakyComm{healthy: 1}

			err := w.write(context.Background(), comm, path, newPayload())
			require.ErrorIs(t, err, errGroupLost)

			require.Len(t, *opened, 1)
			require.ErrorIs(t, (*opened)[0].WriteAt([]byte{1}, 0), io.ErrNotOpened)

			if pw, ok := w.(*PipelinedWriter); ok {
				require.False(t, pw.Pending())
				require.NoError(t, pw.Drain(context.Background()))
			}
		})
	}
}

func TestBlockingWriterReleasesFileWhenWriteFails(t *testing.T) {
	opened := recordOpens(t)
	path := filepath.Join(t.TempDir(), "dump")

	// open and placement succeed, the ocean write agreement fails
	comm := &flakyComm{healthy: 3}

	err := BlockingWriter{}.write(context.Background(), comm, path, newPayload())
	require.ErrorIs(t, err, errGroupLost)

	require.Len(t, *opened, 1)
	require.ErrorIs(t, (*opened)[0].WriteAt([]byte{1}, 0), io.ErrNotOpened)
}
