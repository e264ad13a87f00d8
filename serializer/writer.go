package serializer

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/dot5enko/wavdump/bits"
	"github.com/dot5enko/wavdump/collective"
	"github.com/dot5enko/wavdump/schema"
)

// payload is everything one rank contributes to a dump file. Its buffers
// belong to the write until the writer is done with them.
type payload struct {
	index *processIndex

	ocean    []byte
	lut      schema.HeaderLUT
	metadata []byte
	header   []byte

	miniHeader [schema.MiniHeaderSize]byte
	lutRecord  [schema.HeaderLUTSize]byte
}

func newPayload() *payload {
	return &payload{index: newProcessIndex()}
}

// layout is where a rank writes its parts of a file.
type layout struct {
	oceanOffset    int64
	displacement   uint64
	headerOffset   int64
	metadataOffset int64
	lutTitleOffset int64
	lutOffset      int64
}

// openFile is swapped in tests to observe the handle a write opened.
var openFile = collective.OpenFile

// place computes the rank's offsets. It is collective.
func place(ctx context.Context, comm collective.Communicator, p *payload) (layout, error) {
	var l layout

	written := uint64(len(p.ocean))

	before, err := collective.Exscan(ctx, comm, written)
	if err != nil {
		return l, err
	}

	total, err := collective.Bcast(ctx, comm, comm.Size()-1, before+written)
	if err != nil {
		return l, err
	}

	cur := int64(schema.MiniHeaderSize)
	l.oceanOffset = cur + int64(before)

	cur += int64(total)
	l.displacement = uint64(cur)
	l.headerOffset = cur

	cur += int64(len(p.header))
	l.metadataOffset = cur + int64(comm.Rank()*len(p.metadata))

	cur += int64(len(p.metadata) * comm.Size())
	l.lutTitleOffset = cur

	cur += int64(len(schema.LUTTitle))
	l.lutOffset = cur + int64(comm.Rank()*schema.HeaderLUTSize)

	return l, nil
}

func (p *payload) fillRecords(l layout) {
	mini := bits.NewEncodeBuffer(p.miniHeader[:], bits.HostOrder)
	mini.PutUint64(l.displacement)
	mini.WriteString(schema.OceanTitle)

	rec := bits.NewEncodeBuffer(p.lutRecord[:], bits.HostOrder)
	p.lut.WriteTo(&rec)
}

// FileWriter moves a prepared payload into a file shared by all ranks.
type FileWriter interface {
	write(ctx context.Context, comm collective.Communicator, path string, p *payload) error
	// Drain completes every write still in flight. It is collective.
	Drain(ctx context.Context) error
}

// BlockingWriter returns once the whole file is on disk.
type BlockingWriter struct{}

var _ FileWriter = BlockingWriter{}

func (BlockingWriter) write(ctx context.Context, comm collective.Communicator, path string, p *payload) (topErr error) {
	f, err := openFile(ctx, comm, path)
	if err != nil {
		return err
	}

	closed := false
	defer func() {
		if !closed {
			f.Abort()
		}
	}()

	l, err := place(ctx, comm, p)
	if err != nil {
		return err
	}
	p.fillRecords(l)

	if err := f.WriteAtAll(ctx, p.ocean, l.oceanOffset); err != nil {
		return errors.Wrap(err, "write ocean")
	}

	var rootErr error
	if comm.Rank() == 0 {
		rootErr = writeRootParts(f, p, l)
	}

	if err := f.WriteAtAll(ctx, p.metadata, l.metadataOffset); err != nil {
		return errors.Wrap(err, "write block metadata")
	}

	if err := f.WriteAtAll(ctx, p.lutRecord[:], l.lutOffset); err != nil {
		return errors.Wrap(err, "write lookup header")
	}

	closed = true
	if err := f.Close(ctx); err != nil {
		return err
	}

	return rootErr
}

func (BlockingWriter) Drain(context.Context) error { return nil }

func writeRootParts(f *collective.File, p *payload, l layout) error {
	if err := f.WriteAt(p.miniHeader[:], 0); err != nil {
		return errors.Wrap(err, "write mini header")
	}
	if err := f.WriteAt(p.header, l.headerOffset); err != nil {
		return errors.Wrap(err, "write ascii header")
	}
	if err := f.WriteAt([]byte(schema.LUTTitle), l.lutTitleOffset); err != nil {
		return errors.Wrap(err, "write lut title")
	}
	return nil
}

type pipelineState int

const (
	stateClosed pipelineState = iota
	stateOpenPending
)

// PipelinedWriter issues all writes of a dump and returns at once. The next
// write, Drain or Close completes them first.
type PipelinedWriter struct {
	state pipelineState
	file  *collective.File
	reqs  []*collective.Request
}

var _ FileWriter = (*PipelinedWriter)(nil)

func (w *PipelinedWriter) write(ctx context.Context, comm collective.Communicator, path string, p *payload) error {
	if err := w.Drain(ctx); err != nil {
		return err
	}

	f, err := openFile(ctx, comm, path)
	if err != nil {
		return err
	}

	l, err := place(ctx, comm, p)
	if err != nil {
		f.Abort()
		return err
	}
	p.fillRecords(l)

	w.file = f
	w.state = stateOpenPending

	if err := f.WriteAtAllBegin(p.ocean, l.oceanOffset); err != nil {
		return err
	}

	if comm.Rank() == 0 {
		w.reqs = append(w.reqs,
			f.IWriteAt(p.miniHeader[:], 0),
			f.IWriteAt(p.header, l.headerOffset),
			f.IWriteAt([]byte(schema.LUTTitle), l.lutTitleOffset),
		)
	}

	w.reqs = append(w.reqs,
		f.IWriteAt(p.metadata, l.metadataOffset),
		f.IWriteAt(p.lutRecord[:], l.lutOffset),
	)

	return nil
}

func (w *PipelinedWriter) Pending() bool {
	return w.state == stateOpenPending
}

func (w *PipelinedWriter) Drain(ctx context.Context) error {
	if w.state == stateClosed {
		return nil
	}

	waitErr := collective.WaitAll(ctx, w.reqs...)
	w.reqs = w.reqs[:0]

	endErr := w.file.WriteAtAllEnd(ctx)
	closeErr := w.file.Close(ctx)

	w.state = stateClosed
	w.file = nil

	return errors.CombineErrors(waitErr, errors.CombineErrors(endErr, closeErr))
}
