package sweeper

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eternalApril/moondb/internal/config"
	"github.com/eternalApril/moondb/internal/metrics"
	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fillStorage(t *testing.T, clock *fakeClock, expiring, persistent int) *storage.ShardedMapStorage {
	t.Helper()

	s, err := storage.NewShardedMapStorage(4, storage.WithClock(clock.Now))
	require.NoError(t, err)

	for i := 0; i < expiring; i++ {
		s.Write(fmt.Sprintf("tmp-%d", i), value.MakeString("v"), storage.ExpireAt(clock.Now().Add(time.Second)))
	}
	for i := 0; i < persistent; i++ {
		s.Write(fmt.Sprintf("keep-%d", i), value.MakeString("v"), storage.NoExpiration())
	}
	return s
}

// countingExpirer records how often it was driven
type countingExpirer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingExpirer) DeleteExpired(_ int, _ <-chan struct{}) storage.SweepStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return storage.SweepStats{}
}

func (c *countingExpirer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSweeper_RunOnce(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := fillStorage(t, clock, 50, 10)
	m := metrics.New("moondb")

	sw := New(s, config.GCConfig{Enabled: true, Interval: time.Hour, BatchSize: 7}, zap.NewNop(), m)

	stats := sw.RunOnce()
	assert.Equal(t, 0, stats.Removed)
	assert.Equal(t, 50, stats.Scanned)

	clock.Advance(time.Second)

	stats = sw.RunOnce()
	assert.Equal(t, 50, stats.Removed)
	assert.Equal(t, 10, s.KeyCount())
	assert.Equal(t, int64(50), s.Stats().ExpiredActive)

	// everything expired is physically gone
	stats = sw.RunOnce()
	assert.Equal(t, 0, stats.Scanned)

	expected := `
# HELP moondb_sweep_removed_total Expired keys removed by the sweeper.
# TYPE moondb_sweep_removed_total counter
moondb_sweep_removed_total 50
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "moondb_sweep_removed_total"))
}

func TestSweeper_BackgroundLoop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := fillStorage(t, clock, 100, 5)

	sw := New(s, config.GCConfig{Enabled: true, Interval: 5 * time.Millisecond, BatchSize: 16}, zap.NewNop(), nil)
	sw.Start()
	defer sw.Stop()

	clock.Advance(2 * time.Second)

	require.Eventually(t, func() bool {
		return s.Stats().ExpiredActive == 100
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 5, s.KeyCount())
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	exp := &countingExpirer{}
	sw := New(exp, config.GCConfig{Enabled: true, Interval: time.Millisecond, BatchSize: 1}, nil, nil)

	sw.Start()
	sw.Start()

	require.Eventually(t, func() bool { return exp.Calls() > 0 }, time.Second, time.Millisecond)

	sw.Stop()
	sw.Stop()

	calls := exp.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, exp.Calls(), "sweeper kept running after Stop")
}

func TestSweeper_StopWithoutStart(t *testing.T) {
	exp := &countingExpirer{}
	sw := New(exp, config.GCConfig{Interval: time.Millisecond}, nil, nil)

	done := make(chan struct{})
	go func() {
		sw.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a sweeper that never started")
	}

	// a Start after Stop must not launch the loop
	sw.Start()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, exp.Calls())
}
