package collective

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/dot5enko/wavdump/io"
)

var ErrSplitCollectivePending = errors.New("collective: split collective write already in progress")

// Request tracks one non-blocking write.
type Request struct {
	done chan struct{}
	err  error
}

func newRequest(fn func() error) *Request {
	r := &Request{done: make(chan struct{})}
	go func() {
		r.err = fn()
		close(r.done)
	}()
	return r
}

func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll waits for every request and returns the first error.
func WaitAll(ctx context.Context, reqs ...*Request) error {
	var first error
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if err := r.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// File is a file opened by every rank of a communicator. Each rank holds its
// own handle; regions written by different ranks must not overlap.
type File struct {
	comm Communicator
	f    *io.File

	mu    sync.Mutex
	split *Request
}

// OpenFile is collective. Rank 0 creates or truncates the file before any
// rank opens it for writing.
func OpenFile(ctx context.Context, comm Communicator, path string) (*File, error) {
	var rootErr error
	if comm.Rank() == 0 {
		f := io.NewFile(path)
		if rootErr = f.Open(false, true); rootErr == nil {
			rootErr = f.Close()
		}
	}

	created, err := Bcast(ctx, comm, 0, rootErr == nil)
	if err != nil {
		return nil, err
	}
	if rootErr != nil {
		return nil, rootErr
	}
	if !created {
		return nil, errors.Newf("collective: rank 0 failed to create %s", path)
	}

	f := io.NewFile(path)
	if err := f.Open(false, false); err != nil {
		return nil, err
	}

	return &File{comm: comm, f: f}, nil
}

func (f *File) WriteAt(buf []byte, off int64) error {
	return f.f.WriteAt(buf, off)
}

// WriteAtAll writes and waits for every rank to finish its part.
func (f *File) WriteAtAll(ctx context.Context, buf []byte, off int64) error {
	writeErr := f.f.WriteAt(buf, off)
	return f.completeCollective(ctx, writeErr)
}

// IWriteAt starts a write and returns immediately. buf must stay untouched
// until the request completes.
func (f *File) IWriteAt(buf []byte, off int64) *Request {
	return newRequest(func() error {
		return f.f.WriteAt(buf, off)
	})
}

// WriteAtAllBegin starts this rank's part of a split collective write. Only
// one split collective may be outstanding per file.
func (f *File) WriteAtAllBegin(buf []byte, off int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.split != nil {
		return ErrSplitCollectivePending
	}
	f.split = f.IWriteAt(buf, off)
	return nil
}

// WriteAtAllEnd completes the split collective started by WriteAtAllBegin.
func (f *File) WriteAtAllEnd(ctx context.Context) error {
	f.mu.Lock()
	req := f.split
	f.split = nil
	f.mu.Unlock()

	var writeErr error
	if req == nil {
		writeErr = errors.New("collective: no split collective write in progress")
	} else {
		writeErr = req.Wait(ctx)
	}
	return f.completeCollective(ctx, writeErr)
}

// Close is collective; it returns once every rank closed its handle.
func (f *File) Close(ctx context.Context) error {
	f.mu.Lock()
	pending := f.split
	f.split = nil
	f.mu.Unlock()

	var closeErr error
	if pending != nil {
		closeErr = pending.Wait(ctx)
	}
	if err := f.f.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	return f.completeCollective(ctx, closeErr)
}

// Abort closes this rank's handle without synchronizing with the other ranks,
// for error paths where a collective close cannot complete. A split
// collective still in flight is waited for first.
func (f *File) Abort() error {
	f.mu.Lock()
	pending := f.split
	f.split = nil
	f.mu.Unlock()

	if pending != nil {
		pending.Wait(context.Background())
	}
	return f.f.Close()
}

// completeCollective agrees on success across ranks so a failure on one rank
// fails the operation everywhere.
func (f *File) completeCollective(ctx context.Context, local error) error {
	ok, err := Allgather(ctx, f.comm, local == nil)
	if err != nil {
		return err
	}
	if local != nil {
		return local
	}
	for rank, fine := range ok {
		if !fine {
			return errors.Newf("collective: write failed on rank %d", rank)
		}
	}
	return nil
}
