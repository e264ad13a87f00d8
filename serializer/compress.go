package serializer

import (
	"sync"
	"time"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"

	"github.com/dot5enko/wavdump/cache"
	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/grid"
	"github.com/dot5enko/wavdump/schema"
)

// workerTiming is the time one worker spent on a dump.
type workerTiming struct {
	total  time.Duration
	fwt    time.Duration
	encode time.Duration
}

type compressJob struct {
	blocks   []*grid.Block
	streamer grid.Streamer
	channel  int

	threshold float64
	halfFloat bool
}

// compressor fans the blocks of a rank out to a fixed worker pool. Every
// worker owns one staging buffer from the ring.
type compressor struct {
	pool    *workerpool.Pool
	staging *cache.TypedRingBuffer[stagingBuffer]
	encoder compression.Encoder
}

func newCompressor(workers, blockSize int, enc compression.Encoder) *compressor {
	pool := workerpool.New(workers)

	return &compressor{
		pool: pool,
		staging: cache.NewTypedRingBuffer(pool.NumWorkers(), func(b *stagingBuffer) {
			*b = newStagingBuffer(blockSize)
		}),
		encoder: enc,
	}
}

func (c *compressor) close() {
	c.pool.Close()
}

func (c *compressor) run(job compressJob, idx *processIndex) ([]workerTiming, error) {
	var (
		mu      sync.Mutex
		timings []workerTiming
		first   error
	)

	c.pool.ParallelFor(len(job.blocks), func(start, end int) {
		buf, slot := c.staging.Get()
		defer c.staging.Return(slot)

		buf.ensure()
		buf.reset()

		t, err := c.compressRange(job, idx, buf, start, end)

		mu.Lock()
		defer mu.Unlock()

		timings = append(timings, t)
		if err != nil && first == nil {
			first = err
		}
	})

	return timings, first
}

func (c *compressor) compressRange(job compressJob, idx *processIndex, buf *stagingBuffer, start, end int) (t workerTiming, topErr error) {
	began := time.Now()
	defer func() { t.total = time.Since(began) }()

	n := buf.blockSize()
	soa := buf.compressor.Uncompressed()

	for i := start; i < end; i++ {
		b := job.blocks[i]
		fwtStart := time.Now()

		for iz := 0; iz < n; iz++ {
			for iy := 0; iy < n; iy++ {
				for ix := 0; ix < n; ix++ {
					soa[ix+n*(iy+n*iz)] = job.streamer.Operate(b, job.channel, ix, iy, iz)
				}
			}
		}

		buf.compressor.Compress(job.threshold, job.halfFloat)
		buf.stage(schema.BlockMetadata{
			BlockID: int32(i),
			IX:      int32(b.Index[0]),
			IY:      int32(b.Index[1]),
			IZ:      int32(b.Index[2]),
		})

		t.fwt += time.Since(fwtStart)

		if buf.full() {
			took, err := encodeAndFlush(buf, idx, c.encoder)
			if err != nil {
				return t, err
			}
			t.encode += took
		}
	}

	if !buf.empty() {
		took, err := encodeAndFlush(buf, idx, c.encoder)
		if err != nil {
			return t, err
		}
		t.encode += took
	}

	return t, nil
}
