package metrics

import (
	"time"

	"github.com/eternalApril/moondb/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// KeyspaceSource is what the keyspace metrics are read from on scrape
type KeyspaceSource interface {
	KeyCount() int
	MemoryUsage() int64
	Stats() storage.Stats
}

// Metrics holds the instruments of one store.
// A nil *Metrics is valid and records nothing
type Metrics struct {
	collector       *Collector
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	sweepDuration   prometheus.Observer
	sweepRemoved    prometheus.Counter
	maxMemory       prometheus.Gauge
}

// New registers the store instruments in a fresh registry
func New(namespace string) *Metrics {
	c := NewCollector(namespace)

	sweepBuckets := prometheus.ExponentialBuckets(0.0001, 4, 8)

	return &Metrics{
		collector:       c,
		commands:        c.RegisterCounter("commands_total", "Commands executed, by outcome.", []string{"command", "status"}),
		commandDuration: c.RegisterHistogram("command_duration_seconds", "Command execution latency.", []string{"command"}, nil),
		sweepDuration:   c.RegisterHistogram("sweep_duration_seconds", "Duration of one expiration sweep.", nil, sweepBuckets).WithLabelValues(),
		sweepRemoved:    c.RegisterCounter("sweep_removed_total", "Expired keys removed by the sweeper.", nil).WithLabelValues(),
		maxMemory:       c.RegisterGauge("maxmemory_bytes", "Configured memory limit, 0 when unlimited.", nil).WithLabelValues(),
	}
}

// BindKeyspace exposes the key count and keyspace counters of src
func (m *Metrics) BindKeyspace(src KeyspaceSource) {
	if m == nil {
		return
	}

	m.collector.RegisterGaugeFunc("keys", "Live keys in the store.", func() float64 {
		return float64(src.KeyCount())
	})
	m.collector.RegisterCounterFunc("keyspace_hits_total", "Lookups that found a live key.", nil, func() float64 {
		return float64(src.Stats().Hits)
	})
	m.collector.RegisterCounterFunc("keyspace_misses_total", "Lookups that found nothing.", nil, func() float64 {
		return float64(src.Stats().Misses)
	})
	m.collector.RegisterCounterFunc("expired_keys_total", "Expired keys removed.", prometheus.Labels{"source": "lazy"}, func() float64 {
		return float64(src.Stats().ExpiredLazy)
	})
	m.collector.RegisterCounterFunc("expired_keys_total", "Expired keys removed.", prometheus.Labels{"source": "active"}, func() float64 {
		return float64(src.Stats().ExpiredActive)
	})
	m.collector.RegisterCounterFunc("evicted_keys_total", "Keys evicted to stay under the memory limit.", nil, func() float64 {
		return float64(src.Stats().Evicted)
	})
	m.collector.RegisterGaugeFunc("used_memory_bytes", "Estimated memory used by keys and values.", func() float64 {
		return float64(src.MemoryUsage())
	})
}

// SetMaxMemory publishes the current memory limit
func (m *Metrics) SetMaxMemory(bytes int64) {
	if m == nil {
		return
	}
	m.maxMemory.Set(float64(bytes))
}

// ObserveCommand records one command execution
func (m *Metrics) ObserveCommand(name string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.commands.WithLabelValues(name, status).Inc()
	m.commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveSweep records one sweeper cycle
func (m *Metrics) ObserveSweep(removed int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.sweepDuration.Observe(elapsed.Seconds())
	m.sweepRemoved.Add(float64(removed))
}

// Registry returns the underlying registry, nil when metrics are disabled
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.collector.GetRegistry()
}
