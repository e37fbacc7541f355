package sweeper

import (
	"sync"
	"time"

	"github.com/eternalApril/moondb/internal/config"
	"github.com/eternalApril/moondb/internal/metrics"
	"github.com/eternalApril/moondb/internal/storage"
	"go.uber.org/zap"
)

// Expirer is the part of the storage the sweeper drives
type Expirer interface {
	DeleteExpired(batch int, stop <-chan struct{}) storage.SweepStats
}

// Sweeper periodically removes expired keys from the storage.
// Reads check deadlines themselves, so the sweeper only reclaims memory
type Sweeper struct {
	storage  Expirer
	interval time.Duration
	batch    int
	logger   *zap.Logger
	metrics  *metrics.Metrics

	stop      chan struct{} // closed to stop the loop
	done      chan struct{} // closed when the loop has returned
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// New creates a sweeper. It does nothing until Start is called
func New(s Expirer, cfg config.GCConfig, logger *zap.Logger, m *metrics.Metrics) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultGCConfig().Interval
	}

	return &Sweeper{
		storage:  s,
		interval: interval,
		batch:    cfg.BatchSize,
		logger:   logger.Named("sweeper"),
		metrics:  m,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. Calls after the first are no-ops
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.started = true
		go s.loop()
	})
}

// Stop signals the loop to exit and waits for it. Safe to call more than once
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		// prevent a later Start from launching a loop that would never stop
		s.startOnce.Do(func() {})
		if s.started {
			<-s.done
		}
	})
}

// RunOnce performs a single sweep synchronously
func (s *Sweeper) RunOnce() storage.SweepStats {
	begin := time.Now()
	stats := s.storage.DeleteExpired(s.batch, s.stop)
	elapsed := time.Since(begin)

	s.metrics.ObserveSweep(stats.Removed, elapsed)

	if stats.Removed > 0 {
		s.logger.Debug("sweep removed expired keys",
			zap.Int("removed", stats.Removed),
			zap.Int("scanned", stats.Scanned),
			zap.Duration("elapsed", elapsed),
		)
	}

	return stats
}

// loop triggers the active expiration mechanism
func (s *Sweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval), zap.Int("batch_size", s.batch))

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-s.stop:
			s.logger.Info("sweeper stopped")
			return
		}
	}
}
