package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.RecordDump("density", "0", 10, 1, 1, 2)
	m.ObservePhase(PhaseIO, time.Second)
	m.RecordBlockRead()
}

func TestRecordDump(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordDump("density", "0", 100, 2, 8, 4.5)
	m.RecordDump("density", "0", 50, 1, 8, 3)
	m.RecordBlockRead()

	require.Equal(t, 150.0, testutil.ToFloat64(m.BytesWritten.WithLabelValues("density", "0")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.ChunksWritten))
	require.Equal(t, 16.0, testutil.ToFloat64(m.BlocksWritten))
	require.Equal(t, 3.0, testutil.ToFloat64(m.CompressionRate.WithLabelValues("density", "0")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BlocksRead))

	// a second registration reuses the collectors
	again := New(reg)
	require.Equal(t, 3.0, testutil.ToFloat64(again.ChunksWritten))
}
