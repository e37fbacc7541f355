package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector wraps a private Prometheus registry and provides metric registration helpers
type Collector struct {
	registry  *prometheus.Registry
	namespace string
}

// NewCollector creates a new metrics collector whose metric names are prefixed by namespace
func NewCollector(namespace string) *Collector {
	return &Collector{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
	}
}

// RegisterCounter registers a counter metric with the collector
func (c *Collector) RegisterCounter(name, help string, labels []string) *prometheus.CounterVec {
	return promauto.With(c.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// RegisterGauge registers a gauge metric with the collector
func (c *Collector) RegisterGauge(name, help string, labels []string) *prometheus.GaugeVec {
	return promauto.With(c.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// RegisterHistogram registers a histogram metric with the collector
func (c *Collector) RegisterHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	if buckets == nil {
		// Default buckets for duration metrics (in seconds)
		opts.Buckets = prometheus.DefBuckets
	}
	return promauto.With(c.registry).NewHistogramVec(opts, labels)
}

// RegisterCounterFunc registers a counter whose value is read from fn on every scrape
func (c *Collector) RegisterCounterFunc(name, help string, constLabels prometheus.Labels, fn func() float64) prometheus.CounterFunc {
	return promauto.With(c.registry).NewCounterFunc(
		prometheus.CounterOpts{
			Namespace:   c.namespace,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		},
		fn,
	)
}

// RegisterGaugeFunc registers a gauge whose value is read from fn on every scrape
func (c *Collector) RegisterGaugeFunc(name, help string, fn func() float64) prometheus.GaugeFunc {
	return promauto.With(c.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      name,
			Help:      help,
		},
		fn,
	)
}

// GetRegistry returns the Prometheus registry for an HTTP handler or a gatherer
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
