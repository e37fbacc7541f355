package storage

import "github.com/puzpuzpuz/xsync/v3"

// Stats is a point-in-time copy of the keyspace counters
type Stats struct {
	Hits          int64 // reads that found a live key
	Misses        int64 // reads that found nothing
	ExpiredLazy   int64 // expired keys removed on access
	ExpiredActive int64 // expired keys removed by the sweeper
	Evicted       int64 // keys removed to stay under the memory limit
}

// counters are shared by all shards of a storage
type counters struct {
	hits          *xsync.Counter
	misses        *xsync.Counter
	expiredLazy   *xsync.Counter
	expiredActive *xsync.Counter
	evicted       *xsync.Counter
}

func newCounters() *counters {
	return &counters{
		hits:          xsync.NewCounter(),
		misses:        xsync.NewCounter(),
		expiredLazy:   xsync.NewCounter(),
		expiredActive: xsync.NewCounter(),
		evicted:       xsync.NewCounter(),
	}
}

func (c *counters) lookup(found bool) {
	if found {
		c.hits.Inc()
		return
	}
	c.misses.Inc()
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:          c.hits.Value(),
		Misses:        c.misses.Value(),
		ExpiredLazy:   c.expiredLazy.Value(),
		ExpiredActive: c.expiredActive.Value(),
		Evicted:       c.evicted.Value(),
	}
}
