package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Register(t *testing.T) {
	c := NewCollector("test")
	require.NotNil(t, c.GetRegistry())

	counter := c.RegisterCounter("events_total", "Events.", []string{"kind"})
	counter.WithLabelValues("a").Add(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues("a")))

	gauge := c.RegisterGauge("depth", "Depth.", nil)
	gauge.WithLabelValues().Set(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(gauge.WithLabelValues()))

	hist := c.RegisterHistogram("latency_seconds", "Latency.", nil, nil)
	hist.WithLabelValues().Observe(0.1)

	count, err := testutil.GatherAndCount(c.GetRegistry(), "test_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// registering the same name twice panics through promauto
	assert.Panics(t, func() {
		c.RegisterCounter("events_total", "Events.", []string{"kind"})
	})
}

func TestMetrics_ObserveCommand(t *testing.T) {
	m := New("moondb")

	m.ObserveCommand("GET", nil, time.Millisecond)
	m.ObserveCommand("GET", nil, time.Millisecond)
	m.ObserveCommand("HSET", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("GET", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("HSET", StatusError)))
}

func TestMetrics_ObserveSweep(t *testing.T) {
	m := New("moondb")
	m.ObserveSweep(4, 2*time.Millisecond)
	m.ObserveSweep(1, time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.sweepRemoved))

	// both cycles land in the unlabelled duration histogram
	expected := `
# HELP moondb_sweep_duration_seconds Duration of one expiration sweep.
# TYPE moondb_sweep_duration_seconds histogram
moondb_sweep_duration_seconds_bucket{le="0.0001"} 0
moondb_sweep_duration_seconds_bucket{le="0.0004"} 0
moondb_sweep_duration_seconds_bucket{le="0.0016"} 1
moondb_sweep_duration_seconds_bucket{le="0.0064"} 2
moondb_sweep_duration_seconds_bucket{le="0.0256"} 2
moondb_sweep_duration_seconds_bucket{le="0.1024"} 2
moondb_sweep_duration_seconds_bucket{le="0.4096"} 2
moondb_sweep_duration_seconds_bucket{le="1.6384"} 2
moondb_sweep_duration_seconds_bucket{le="+Inf"} 2
moondb_sweep_duration_seconds_sum 0.003
moondb_sweep_duration_seconds_count 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "moondb_sweep_duration_seconds"))
}

func TestMetrics_MaxMemory(t *testing.T) {
	m := New("moondb")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.maxMemory))

	m.SetMaxMemory(1 << 20)
	assert.Equal(t, float64(1<<20), testutil.ToFloat64(m.maxMemory))
}

func TestMetrics_BindKeyspace(t *testing.T) {
	m := New("moondb")
	s := storage.NewMapStorage()
	m.BindKeyspace(s)

	s.Write("a", value.MakeString("1"), storage.NoExpiration())
	s.Write("b", value.MakeString("2"), storage.NoExpiration())
	s.Read("a")
	s.Read("missing")

	expected := `
# HELP moondb_keys Live keys in the store.
# TYPE moondb_keys gauge
moondb_keys 2
# HELP moondb_keyspace_hits_total Lookups that found a live key.
# TYPE moondb_keyspace_hits_total counter
moondb_keyspace_hits_total 1
# HELP moondb_keyspace_misses_total Lookups that found nothing.
# TYPE moondb_keyspace_misses_total counter
moondb_keyspace_misses_total 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"moondb_keys", "moondb_keyspace_hits_total", "moondb_keyspace_misses_total")
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "moondb_expired_keys_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "moondb_evicted_keys_total", "moondb_used_memory_bytes")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCommand("GET", nil, time.Millisecond)
		m.ObserveSweep(1, time.Millisecond)
		m.SetMaxMemory(10)
		m.BindKeyspace(storage.NewMapStorage())
	})
	assert.Nil(t, m.Registry())
}
