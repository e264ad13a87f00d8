// Package serializer writes the channels of a distributed block grid into
// wavelet-compressed dump files, one file per channel, collectively across
// all ranks of the grid's communicator.
package serializer

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/dot5enko/wavdump/collective"
	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/grid"
	"github.com/dot5enko/wavdump/metrics"
	"github.com/dot5enko/wavdump/schema"
	"github.com/dot5enko/wavdump/wavelet"
)

var ErrNonUniformDecomposition = errors.New("serializer: ranks hold different numbers of blocks")

// Serializer is owned by a single rank. Every rank of the communicator must
// call Write, WriteAll, ForceClose and Close in the same order.
type Serializer struct {
	opts    Options
	encoder compression.Encoder
	writer  FileWriter
	logger  *slog.Logger

	comp      *compressor
	blockSize int

	// payloads alternate between calls so a pipelined write in flight never
	// shares buffers with the next compression
	slots [2]*payload
	calls int
}

func New(opts Options) (*Serializer, error) {
	enc, err := compression.ByName(opts.Encoder)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var writer FileWriter = BlockingWriter{}
	if opts.Pipelined {
		writer = &PipelinedWriter{}
	}

	return &Serializer{
		opts:    opts,
		encoder: enc,
		writer:  writer,
		logger:  logger,
		slots:   [2]*payload{newPayload(), newPayload()},
	}, nil
}

func (s *Serializer) SetThreshold(threshold float64) { s.opts.Threshold = threshold }
func (s *Serializer) Float16(enabled bool)           { s.opts.HalfFloat = enabled }
func (s *Serializer) Verbose(enabled bool)           { s.opts.Verbose = enabled }

func (s *Serializer) Options() Options {
	return s.opts
}

// WriteAll writes every channel of streamer to its own file next to base.
func (s *Serializer) WriteAll(ctx context.Context, g grid.Grid, streamer grid.Streamer, base string) error {
	for ch := 0; ch < streamer.Channels(); ch++ {
		if err := s.Write(ctx, g, streamer, ch, schema.ChannelPath(base, streamer.Name(), ch)); err != nil {
			return errors.Wrapf(err, "channel %d", ch)
		}
	}
	return nil
}

// Write compresses one channel of the resident blocks and writes the dump
// file at path. With a pipelined writer the file is complete only after the
// next Write, ForceClose or Close.
func (s *Serializer) Write(ctx context.Context, g grid.Grid, streamer grid.Streamer, channel int, path string) error {
	comm := g.Comm()
	blocks := g.Blocks()
	dumpID := uuid.Must(uuid.NewV7())

	uniform, err := collective.AllEqual(ctx, comm, len(blocks))
	if err != nil {
		return err
	}
	if !uniform {
		return ErrNonUniformDecomposition
	}

	if s.comp == nil || s.blockSize != g.BlockSize() {
		if s.comp != nil {
			s.comp.close()
		}
		s.comp = newCompressor(s.opts.Workers, g.BlockSize(), s.encoder)
		s.blockSize = g.BlockSize()
	}

	p := s.slots[s.calls%2]
	s.calls++

	n := g.BlockSize()
	rawBytes := len(blocks) * n * n * n * schema.SizeofReal
	p.index.reset(len(blocks), rawBytes)

	timings, compressErr := s.comp.run(compressJob{
		blocks:    blocks,
		streamer:  streamer,
		channel:   channel,
		threshold: s.opts.Threshold,
		halfFloat: s.opts.HalfFloat,
	}, p.index)

	if compressErr == nil {
		if missing := p.index.missingBlocks(); len(missing) > 0 {
			compressErr = errors.AssertionFailedf("blocks %v were compressed into no chunk", missing)
		}
	}

	if err := agree(ctx, comm, compressErr); err != nil {
		return err
	}

	p.ocean, p.lut = p.index.finalize()
	p.metadata = schema.EncodeBlockMetadata(p.index.blocks)

	header := s.header(g)
	p.header = []byte(header.Format())

	ioStart := time.Now()
	if err := s.writer.write(ctx, comm, path, p); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	ioTime := time.Since(ioStart)

	s.observe(streamer, channel, p, timings, ioTime, rawBytes)

	s.logger.Debug("rank dump issued",
		"dump", dumpID.String(),
		"rank", comm.Rank(),
		"bytes", len(p.ocean),
		"chunks", p.lut.NChunks,
		"blocks", len(blocks),
	)

	if comm.Rank() == 0 {
		s.logger.Info("dump written",
			"dump", dumpID.String(),
			"path", path,
			"streamer", streamer.Name(),
			"channel", channel,
			"pipelined", s.opts.Pipelined,
		)
	}

	if s.opts.Verbose {
		return s.report(ctx, comm, channel, p, timings, ioTime, rawBytes)
	}

	return nil
}

func (s *Serializer) header(g grid.Grid) schema.FileHeader {
	h := schema.NewFileHeader()
	n := g.BlockSize()

	h.BlockSize = n
	h.Blocks = g.BlocksPerDimension()
	h.SubdomainBlocks = g.ResidentBlocksPerDimension()
	for d := 0; d < 3; d++ {
		h.Extent[d] = g.H() * float64(h.Blocks[d]*n-1)
	}
	h.HalfFloat = s.opts.HalfFloat
	h.Wavelets = wavelet.Name
	h.Threshold = s.opts.Threshold
	h.Encoder = s.encoder.Name()

	return h
}

func (s *Serializer) observe(streamer grid.Streamer, channel int, p *payload, timings []workerTiming, ioTime time.Duration, rawBytes int) {
	m := s.opts.Metrics
	if m == nil {
		return
	}

	var rate float64
	if len(p.ocean) > 0 {
		rate = float64(rawBytes) / float64(len(p.ocean))
	}
	m.RecordDump(streamer.Name(), strconv.Itoa(channel), uint64(len(p.ocean)), int(p.lut.NChunks), len(p.index.blocks), rate)

	for _, t := range timings {
		m.ObservePhase(metrics.PhaseFWT, t.fwt)
		m.ObservePhase(metrics.PhaseEncode, t.encode)
	}
	m.ObservePhase(metrics.PhaseIO, ioTime)
}

// ForceClose completes a pipelined write in flight.
func (s *Serializer) ForceClose(ctx context.Context) error {
	return s.writer.Drain(ctx)
}

// Close completes pending writes and stops the workers.
func (s *Serializer) Close(ctx context.Context) error {
	err := s.writer.Drain(ctx)

	if s.comp != nil {
		s.comp.close()
		s.comp = nil
	}
	return err
}

// agree fails on every rank when any rank failed.
func agree(ctx context.Context, comm collective.Communicator, local error) error {
	fine, err := collective.Allgather(ctx, comm, local == nil)
	if err != nil {
		return err
	}
	if local != nil {
		return local
	}
	for rank, ok := range fine {
		if !ok {
			return errors.Newf("serializer: compression failed on rank %d", rank)
		}
	}
	return nil
}

type tlpLine struct {
	name  string
	stats collective.Stats
	count uint64
}

func (l tlpLine) avg() float64 {
	return l.stats.Avg(int(l.count))
}

func reduceWorkload(ctx context.Context, comm collective.Communicator, name string, values []time.Duration) (tlpLine, error) {
	local := collective.Stats{}
	for i, v := range values {
		sec := v.Seconds()
		if i == 0 {
			local.Min, local.Max = sec, sec
		}
		local.Min = min(local.Min, sec)
		local.Max = max(local.Max, sec)
		local.Sum += sec
	}

	stats, err := collective.ReduceStats(ctx, comm, local)
	if err != nil {
		return tlpLine{}, err
	}

	count, err := collective.AllreduceSum(ctx, comm, uint64(len(values)))
	if err != nil {
		return tlpLine{}, err
	}

	return tlpLine{name: name, stats: stats, count: count}, nil
}

// report prints the profile of the last write on rank 0. It is collective.
func (s *Serializer) report(ctx context.Context, comm collective.Communicator, channel int, p *payload, timings []workerTiming, ioTime time.Duration, rawBytes int) error {
	aggregate, err := collective.AllreduceSum(ctx, comm, uint64(len(p.ocean)))
	if err != nil {
		return err
	}

	pick := func(f func(workerTiming) time.Duration) []time.Duration {
		res := make([]time.Duration, len(timings))
		for i, t := range timings {
			res[i] = f(t)
		}
		return res
	}

	workloads := []struct {
		name   string
		values []time.Duration
	}{
		{"Compr", pick(func(t workerTiming) time.Duration { return t.total })},
		{"FWT+decim", pick(func(t workerTiming) time.Duration { return t.fwt })},
		{"Encoding", pick(func(t workerTiming) time.Duration { return t.encode })},
		{"FileIO", []time.Duration{ioTime}},
	}

	lines := make([]tlpLine, 0, len(workloads))
	for _, w := range workloads {
		l, err := reduceWorkload(ctx, comm, w.name, w.values)
		if err != nil {
			return err
		}
		lines = append(lines, l)
	}

	if comm.Rank() != 0 {
		return nil
	}

	rate := 0.0
	if aggregate > 0 {
		rate = float64(rawBytes*comm.Size()) / float64(aggregate)
	}

	color.Green("Channel %d: %.2f kB, wavelet-threshold: %.1e, compr. rate: %.2f",
		channel, float64(aggregate)/1024, s.opts.Threshold, rate)

	for _, l := range lines {
		imb := 0.0
		if avg := l.avg(); avg > 0 {
			imb = (l.stats.Max - l.stats.Min) / avg * 100
		}
		color.Yellow("TLP %-10s min:%.3e s avg:%.3e s max:%.3e s imb:%.0f%%",
			l.name, l.stats.Min, l.avg(), l.stats.Max, imb)
	}

	compr, fwt, enc, io := lines[0].avg(), lines[1].avg(), lines[2].avg(), lines[3].avg()
	if overall := io + compr; overall > 0 {
		color.Cyan("Time distribution: %5s:%.0f%% %5s:%.0f%% %5s:%.0f%% %5s:%.0f%%",
			"FWT", fwt/overall*100,
			"ENC", enc/overall*100,
			"IO", io/overall*100,
			"Other", (compr-fwt-enc)/overall*100)
	}

	return nil
}
