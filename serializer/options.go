package serializer

import (
	"log/slog"

	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/metrics"
	"github.com/dot5enko/wavdump/wavelet"
)

// WorkingSetSize is the staging memory every worker aims for.
const WorkingSetSize = 4 * 1024 * 1024

type Options struct {
	Threshold float64
	HalfFloat bool
	Verbose   bool

	// Encoder names the chunk compressor, see compression.Names.
	Encoder string

	// Workers is the number of compression goroutines per rank, GOMAXPROCS when zero.
	Workers int

	// Pipelined returns from Write with the file I/O still in flight.
	Pipelined bool

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Threshold: 0,
		Encoder:   compression.DefaultName,
	}
}

// stagingLimits sizes a worker's staging buffer for a block size.
type stagingLimits struct {
	entrySize  int
	entries    int
	bufferSize int
	alert      int
}

func limitsFor(blockSize int) stagingLimits {
	l := stagingLimits{entrySize: wavelet.MaxCompressedSize(blockSize) + 4}

	l.entries = max(1, WorkingSetSize/l.entrySize)
	l.bufferSize = l.entries * l.entrySize
	l.alert = (l.entries - 1) * l.entrySize

	return l
}

// StagingBufferSize bounds the decoded size of any chunk written for blocks
// of blockSize.
func StagingBufferSize(blockSize int) int {
	return limitsFor(blockSize).bufferSize
}
