package storage

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eternalApril/moondb/internal/value"
)

// EvictionPolicy selects the keys removed once the memory limit is exceeded
type EvictionPolicy int32

const (
	NoEviction EvictionPolicy = iota
	AllKeysLRU
	AllKeysLFU
	AllKeysRandom
	VolatileLRU
	VolatileLFU
	VolatileRandom
	VolatileTTL
)

var policyNames = [...]string{
	NoEviction:     "noeviction",
	AllKeysLRU:     "allkeys-lru",
	AllKeysLFU:     "allkeys-lfu",
	AllKeysRandom:  "allkeys-random",
	VolatileLRU:    "volatile-lru",
	VolatileLFU:    "volatile-lfu",
	VolatileRandom: "volatile-random",
	VolatileTTL:    "volatile-ttl",
}

func (p EvictionPolicy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("unknown(%d)", int32(p))
	}
	return policyNames[p]
}

// ParseEvictionPolicy accepts the names used by the maxmemory-policy setting, ignoring case
func ParseEvictionPolicy(name string) (EvictionPolicy, error) {
	for p, n := range policyNames {
		if strings.EqualFold(name, n) {
			return EvictionPolicy(p), nil
		}
	}
	return NoEviction, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// volatile policies only consider keys with a deadline
func (p EvictionPolicy) volatile() bool {
	return p >= VolatileLRU
}

var (
	// ErrOutOfMemory is returned by FreeMemory when nothing can be evicted
	ErrOutOfMemory = errors.New("OOM command not allowed when used memory > 'maxmemory'")

	ErrUnknownPolicy = errors.New("unknown maxmemory policy")
)

const (
	// keyOverhead is the assumed cost of a key on top of its name and value
	keyOverhead = 50

	defaultEvictionSamples = 5

	// new keys start with a small frequency so they are not evicted right away under LFU
	lfuInitial = 5
)

func footprint(key string, v value.Value) int64 {
	return int64(len(key)) + v.EstimatedSize() + keyOverhead
}

// memory holds the limit and the usage shared by all shards of a storage.
// Usage is only accounted while a limit is set
type memory struct {
	limit   atomic.Int64
	policy  atomic.Int32
	used    atomic.Int64
	samples int
	mu      sync.Mutex // serializes limit changes
}

func newMemory(o options) *memory {
	mem := &memory{samples: o.samples}
	if mem.samples <= 0 {
		mem.samples = defaultEvictionSamples
	}
	if o.maxMemory > 0 {
		mem.limit.Store(o.maxMemory)
	}
	mem.policy.Store(int32(o.policy))
	return mem
}

func (mem *memory) tracking() bool {
	return mem.limit.Load() > 0
}

func (mem *memory) evictionPolicy() EvictionPolicy {
	return EvictionPolicy(mem.policy.Load())
}

// setLimit stores the limit and switches accounting of every shard on or off
func (mem *memory) setLimit(bytes int64, shards []*MapStorage) {
	bytes = max(bytes, 0)

	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.limit.Store(bytes)
	for _, shard := range shards {
		shard.trackMemory(bytes > 0)
	}
}

// usage returns the accounted usage, or measures the shards when no limit is set
func (mem *memory) usage(shards []*MapStorage) int64 {
	if mem.tracking() {
		return mem.used.Load()
	}
	var total int64
	for _, shard := range shards {
		total += shard.measure()
	}
	return total
}

type candidate struct {
	shard *MapStorage
	key   string
	score int64 // lowest is evicted first
}

// freeMemory evicts sampled keys until usage is back under the limit
func freeMemory(shards []*MapStorage, mem *memory, stats *counters) error {
	for {
		limit := mem.limit.Load()
		if limit <= 0 || mem.used.Load() <= limit {
			return nil
		}

		policy := mem.evictionPolicy()
		if policy == NoEviction {
			return ErrOutOfMemory
		}

		victim, ok := pickVictim(shards, policy, mem.samples)
		if !ok {
			return ErrOutOfMemory
		}
		if victim.shard.evict(victim.key) {
			stats.evicted.Inc()
		}
	}
}

// pickVictim samples keys starting at a random shard and returns the best candidate
func pickVictim(shards []*MapStorage, policy EvictionPolicy, samples int) (candidate, bool) {
	var best candidate
	found := false
	seen := 0

	start := rand.IntN(len(shards))
	for i := range shards {
		shard := shards[(start+i)%len(shards)]
		seen += shard.sample(policy, samples-seen, func(c candidate) {
			if !found || c.score < best.score {
				best, found = c, true
			}
		})
		if seen >= samples {
			break
		}
	}

	return best, found
}
