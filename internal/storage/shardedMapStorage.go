package storage

import (
	"hash/fnv"
	"math/bits"
	"sync"
	"time"

	"github.com/eternalApril/moondb/internal/value"
)

// ShardedMapStorage is a thread-safe key-value storage,
// divided into segments (shards) to reduce contention for locking
type ShardedMapStorage struct {
	shards    []*MapStorage
	shardMask uint32
	stats     *counters
	mem       *memory
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64.
func NewShardedMapStorage(requestedShards uint, opts ...Option) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, errShardsPowerOfTwo
	}

	if requestedShards > 64 {
		return nil, errShardsTooMany
	}

	o := buildOptions(opts)
	s := &ShardedMapStorage{
		shards:    make([]*MapStorage, requestedShards),
		shardMask: uint32(requestedShards - 1),
		stats:     newCounters(),
		mem:       newMemory(o),
	}

	for i := range s.shards {
		s.shards[i] = newMapStorage(o.now, s.stats, s.mem)
	}

	return s, nil
}

// getShardIndex returns index of shard by key
func (s *ShardedMapStorage) getShardIndex(key string) uint32 {
	hash := fnv.New32a()
	hash.Write([]byte(key)) //nolint:errcheck

	return hash.Sum32() & s.shardMask
}

func (s *ShardedMapStorage) shard(key string) *MapStorage {
	return s.shards[s.getShardIndex(key)]
}

// ShardCount returns the number of shards
func (s *ShardedMapStorage) ShardCount() int {
	return len(s.shards)
}

func (s *ShardedMapStorage) Read(key string) (Entry, bool) {
	return s.shard(key).Read(key)
}

func (s *ShardedMapStorage) Write(key string, v value.Value, policy ExpirationPolicy) {
	s.shard(key).Write(key, v, policy)
}

func (s *ShardedMapStorage) WriteIf(key string, v value.Value, policy ExpirationPolicy, cond Condition) bool {
	return s.shard(key).WriteIf(key, v, policy, cond)
}

func (s *ShardedMapStorage) MutateTyped(key string, kind value.Kind, fn MutateFunc) (value.Value, error) {
	return s.shard(key).MutateTyped(key, kind, fn)
}

func (s *ShardedMapStorage) ViewTyped(key string, kind value.Kind, fn ViewFunc) (value.Value, error) {
	return s.shard(key).ViewTyped(key, kind, fn)
}

func (s *ShardedMapStorage) Delete(key string) bool {
	return s.shard(key).Delete(key)
}

func (s *ShardedMapStorage) Exists(key string) bool {
	return s.shard(key).Exists(key)
}

func (s *ShardedMapStorage) SetExpiration(key string, at time.Time) bool {
	return s.shard(key).SetExpiration(key, at)
}

func (s *ShardedMapStorage) Persist(key string) bool {
	return s.shard(key).Persist(key)
}

func (s *ShardedMapStorage) TTL(key string) TTL {
	return s.shard(key).TTL(key)
}

// lockPair write-locks the shards of both keys in index order and returns them with the unlock func
func (s *ShardedMapStorage) lockPair(a, b string) (*MapStorage, *MapStorage, func()) {
	i, j := s.getShardIndex(a), s.getShardIndex(b)
	first, second := s.shards[i], s.shards[j]

	if i == j {
		first.mu.Lock()
		return first, second, first.mu.Unlock
	}
	if i < j {
		first.mu.Lock()
		second.mu.Lock()
	} else {
		second.mu.Lock()
		first.mu.Lock()
	}
	return first, second, func() {
		first.mu.Unlock()
		second.mu.Unlock()
	}
}

// Rename moves src to dst while holding the locks of both shards
func (s *ShardedMapStorage) Rename(src, dst string, nx bool) (bool, error) {
	from, to, unlock := s.lockPair(src, dst)
	defer unlock()

	return renameLocked(from, to, src, dst, nx, from.nowNano())
}

// Copy duplicates src into dst while holding the locks of both shards
func (s *ShardedMapStorage) Copy(src, dst string, replace bool) bool {
	from, to, unlock := s.lockPair(src, dst)
	defer unlock()

	return copyLocked(from, to, src, dst, replace, from.nowNano())
}

// KeyCount sums the live keys of every shard
func (s *ShardedMapStorage) KeyCount() int {
	count := 0
	for _, shard := range s.shards {
		count += shard.KeyCount()
	}
	return count
}

// Keys collects the live keys of every shard
func (s *ShardedMapStorage) Keys() []string {
	var keys []string
	for _, shard := range s.shards {
		keys = append(keys, shard.Keys()...)
	}
	return keys
}

// ClearAll empties the shards one after another
func (s *ShardedMapStorage) ClearAll() {
	for _, shard := range s.shards {
		shard.ClearAll()
	}
}

// DeleteExpired sweeps all shards in parallel and sums their results
func (s *ShardedMapStorage) DeleteExpired(batch int, stop <-chan struct{}) SweepStats {
	var wg sync.WaitGroup
	var mu sync.Mutex // protects total
	var total SweepStats

	wg.Add(len(s.shards))

	for _, shard := range s.shards {
		go func(m *MapStorage) {
			defer wg.Done()
			stats := m.DeleteExpired(batch, stop)

			mu.Lock()
			total.Scanned += stats.Scanned
			total.Removed += stats.Removed
			mu.Unlock()
		}(shard)
	}

	wg.Wait()

	return total
}

func (s *ShardedMapStorage) SetMaxMemory(bytes int64) {
	s.mem.setLimit(bytes, s.shards)
}

func (s *ShardedMapStorage) SetEvictionPolicy(policy EvictionPolicy) {
	s.mem.policy.Store(int32(policy))
}

func (s *ShardedMapStorage) MaxMemory() (int64, EvictionPolicy) {
	return s.mem.limit.Load(), s.mem.evictionPolicy()
}

func (s *ShardedMapStorage) MemoryUsage() int64 {
	return s.mem.usage(s.shards)
}

// FreeMemory samples keys across shards and evicts until usage is under the limit
func (s *ShardedMapStorage) FreeMemory() error {
	return freeMemory(s.shards, s.mem, s.stats)
}

func (s *ShardedMapStorage) Stats() Stats {
	return s.stats.snapshot()
}
