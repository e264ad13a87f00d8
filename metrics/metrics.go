// Package metrics exposes Prometheus collectors for dump writes and reads.
//
// All methods accept a nil receiver so callers never check whether metrics
// are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Phases of a dump write observed in PhaseDuration.
const (
	PhaseFWT    = "fwt"
	PhaseEncode = "encode"
	PhaseIO     = "io"
)

type Metrics struct {
	// BytesWritten counts ocean bytes by streamer and channel
	BytesWritten *prometheus.CounterVec

	// ChunksWritten counts encoded chunks
	ChunksWritten prometheus.Counter

	// BlocksWritten counts compressed blocks
	BlocksWritten prometheus.Counter

	// CompressionRate is raw bytes over written bytes of the last dump
	CompressionRate *prometheus.GaugeVec

	// PhaseDuration tracks per-rank time spent in each write phase
	PhaseDuration *prometheus.HistogramVec

	// BlocksRead counts blocks decoded by readers
	BlocksRead prometheus.Counter
}

// New creates the collectors and registers them with reg unless reg is nil.
// Collectors already present in reg are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavdump_bytes_written_total",
				Help: "Total compressed bytes written to dump oceans",
			},
			[]string{"streamer", "channel"},
		),

		ChunksWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wavdump_chunks_written_total",
				Help: "Total encoded chunks written",
			},
		),

		BlocksWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wavdump_blocks_written_total",
				Help: "Total wavelet compressed blocks written",
			},
		),

		CompressionRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wavdump_compression_rate",
				Help: "Uncompressed over compressed size of the last dump",
			},
			[]string{"streamer", "channel"},
		),

		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wavdump_phase_duration_seconds",
				Help:    "Duration of dump write phases in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),

		BlocksRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wavdump_blocks_read_total",
				Help: "Total blocks decoded by readers",
			},
		),
	}

	if reg != nil {
		m.BytesWritten = registerOrReuse(reg, m.BytesWritten).(*prometheus.CounterVec)
		m.ChunksWritten = registerOrReuse(reg, m.ChunksWritten).(prometheus.Counter)
		m.BlocksWritten = registerOrReuse(reg, m.BlocksWritten).(prometheus.Counter)
		m.CompressionRate = registerOrReuse(reg, m.CompressionRate).(*prometheus.GaugeVec)
		m.PhaseDuration = registerOrReuse(reg, m.PhaseDuration).(*prometheus.HistogramVec)
		m.BlocksRead = registerOrReuse(reg, m.BlocksRead).(prometheus.Counter)
	}

	return m
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Metrics) RecordDump(streamer, channel string, bytes uint64, chunks, blocks int, rate float64) {
	if m == nil {
		return
	}
	m.BytesWritten.WithLabelValues(streamer, channel).Add(float64(bytes))
	m.ChunksWritten.Add(float64(chunks))
	m.BlocksWritten.Add(float64(blocks))
	if rate > 0 {
		m.CompressionRate.WithLabelValues(streamer, channel).Set(rate)
	}
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) RecordBlockRead() {
	if m == nil {
		return
	}
	m.BlocksRead.Inc()
}
