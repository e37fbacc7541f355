package storage

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eternalApril/moondb/internal/value"
)

const defaultSweepBatch = 256

var (
	// deadlines are stored as unix nanoseconds, instants outside this range saturate
	maxDeadline = time.Unix(0, math.MaxInt64)
	minDeadline = time.Unix(0, math.MinInt64)
)

// deadline converts an instant to its stored form
func deadline(at time.Time) int64 {
	switch {
	case at.After(maxDeadline):
		return math.MaxInt64
	case at.Before(minDeadline):
		return math.MinInt64
	}
	return at.UnixNano()
}

// Option configures a storage
type Option func(*options)

type options struct {
	now       func() time.Time
	maxMemory int64
	policy    EvictionPolicy
	samples   int
}

// WithClock replaces time.Now as the source of the current instant
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxMemory sets the memory limit in bytes (0 means unlimited) and the eviction policy
func WithMaxMemory(bytes int64, policy EvictionPolicy) Option {
	return func(o *options) {
		o.maxMemory = bytes
		o.policy = policy
	}
}

// WithEvictionSamples sets how many keys are compared to pick one for eviction
func WithEvictionSamples(n int) Option {
	return func(o *options) {
		o.samples = n
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// item is a stored value with its accounting and access data
type item struct {
	val    value.Value
	size   int64         // accounted footprint, 0 while memory is not tracked
	access atomic.Int64  // last access, unix nanoseconds
	freq   atomic.Uint32 // access counter for LFU
}

func (it *item) touch(now int64) {
	it.access.Store(now)
	if f := it.freq.Load(); f < math.MaxUint32 {
		it.freq.Add(1)
	}
}

// MapStorage is a thread-safe key-value storage.
type MapStorage struct {
	data    map[string]*item // key - value
	expires map[string]int64 // key - expires time nanoseconds
	mu      sync.RWMutex
	now     func() time.Time
	stats   *counters
	mem     *memory
	tracked bool  // sizes are accounted in mem
	used    int64 // accounted bytes of this shard
}

// NewMapStorage creates a new instance of MapStorage.
func NewMapStorage(opts ...Option) *MapStorage {
	o := buildOptions(opts)
	return newMapStorage(o.now, newCounters(), newMemory(o))
}

func newMapStorage(now func() time.Time, stats *counters, mem *memory) *MapStorage {
	return &MapStorage{
		data:    make(map[string]*item),
		expires: make(map[string]int64),
		now:     now,
		stats:   stats,
		mem:     mem,
		tracked: mem.tracking(),
	}
}

func (m *MapStorage) nowNano() int64 {
	return m.now().UnixNano()
}

// expiredLocked reports whether key has a deadline that has passed. Caller holds the lock
func (m *MapStorage) expiredLocked(key string, now int64) bool {
	exp, ok := m.expires[key]
	return ok && now >= exp
}

// insertLocked stores it under key, replacing whatever was there. Caller holds the write lock
func (m *MapStorage) insertLocked(key string, it *item) {
	if old, ok := m.data[key]; ok && old != it {
		m.releaseLocked(old)
	}
	m.data[key] = it
	it.size = 0
	m.resizeLocked(key, it)
}

// resizeLocked accounts the current footprint of it
func (m *MapStorage) resizeLocked(key string, it *item) {
	if !m.tracked {
		return
	}
	size := footprint(key, it.val)
	m.used += size - it.size
	m.mem.used.Add(size - it.size)
	it.size = size
}

func (m *MapStorage) releaseLocked(it *item) {
	if !m.tracked {
		return
	}
	m.used -= it.size
	m.mem.used.Add(-it.size)
	it.size = 0
}

func (m *MapStorage) removeLocked(key string) {
	if it, ok := m.data[key]; ok {
		m.releaseLocked(it)
	}
	delete(m.data, key)
	delete(m.expires, key)
}

// liveLocked reports whether key is present, dropping it first if it has expired.
// Caller holds the write lock
func (m *MapStorage) liveLocked(key string, now int64) bool {
	if _, ok := m.data[key]; !ok {
		return false
	}
	if m.expiredLocked(key, now) {
		m.removeLocked(key)
		m.stats.expiredLazy.Inc()
		return false
	}
	return true
}

// expireKey removes key if it is still expired once the write lock is held
func (m *MapStorage) expireKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// checking again, can be changed while waiting for the lock
	m.liveLocked(key, m.nowNano())
}

// Read returns a copy of the entry and true if the key is present and not expired
func (m *MapStorage) Read(key string) (Entry, bool) {
	m.mu.RLock()
	it, ok := m.data[key]
	exp, hasExp := m.expires[key]
	now := m.nowNano()

	if ok && (!hasExp || now < exp) {
		it.touch(now)
		entry := Entry{Value: it.val.Clone()}
		if hasExp {
			entry.ExpireAt = time.Unix(0, exp)
		}
		m.mu.RUnlock()
		m.stats.lookup(true)
		return entry, true
	}
	m.mu.RUnlock()

	if ok {
		m.expireKey(key)
	}
	m.stats.lookup(false)
	return Entry{}, false
}

// Write replaces the whole entry. The storage takes ownership of v
func (m *MapStorage) Write(key string, v value.Value, policy ExpirationPolicy) {
	m.WriteIf(key, v, policy, Always)
}

// WriteIf is Write guarded by cond. Returns true if recording has been performed
func (m *MapStorage) WriteIf(key string, v value.Value, policy ExpirationPolicy, cond Condition) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowNano()
	exists := m.liveLocked(key, now)

	if cond == IfAbsent && exists {
		return false
	}
	if cond == IfPresent && !exists {
		return false
	}

	switch policy.kind {
	case policyAt:
		at := deadline(policy.at)
		if now >= at {
			// a deadline in the past leaves nothing behind
			m.removeLocked(key)
			return true
		}
		m.expires[key] = at
	case policyKeep:
		// a missing or expired key has no deadline left to keep
	default:
		delete(m.expires, key)
	}

	it := &item{val: v}
	it.freq.Store(lfuInitial)
	if old, ok := m.data[key]; ok {
		it.freq.Store(old.freq.Load())
	}
	it.touch(now)
	m.insertLocked(key, it)
	return true
}

// MutateTyped applies fn to the live value of key while holding the write lock.
// An absent or expired key starts as the empty form of kind without a deadline.
// A collection left empty by fn removes the key
func (m *MapStorage) MutateTyped(key string, kind value.Kind, fn MutateFunc) (value.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowNano()
	exists := m.liveLocked(key, now)

	var cur value.Value
	if exists {
		cur = m.data[key].val
		if cur.Kind() != kind {
			return value.MakeNull(), &TypeMismatchError{Key: key, Expected: kind, Actual: cur.Kind()}
		}
	} else {
		cur = value.MakeEmpty(kind)
	}

	res, err := fn(&cur)
	if err != nil {
		return value.MakeNull(), err
	}

	if kind.IsCollection() && cur.Len() == 0 {
		if exists {
			m.removeLocked(key)
		}
		return res, nil
	}

	if exists {
		it := m.data[key]
		it.val = cur
		it.touch(now)
		m.resizeLocked(key, it)
		return res, nil
	}

	it := &item{val: cur}
	it.freq.Store(lfuInitial)
	it.touch(now)
	m.insertLocked(key, it)
	return res, nil
}

// ViewTyped applies fn to the live value of key while holding the read lock.
// A missing key is seen as the empty form of kind
func (m *MapStorage) ViewTyped(key string, kind value.Kind, fn ViewFunc) (value.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.nowNano()
	it, ok := m.data[key]
	if ok && m.expiredLocked(key, now) {
		ok = false
	}
	m.stats.lookup(ok)

	if !ok {
		return fn(value.MakeEmpty(kind))
	}
	if it.val.Kind() != kind {
		return value.MakeNull(), &TypeMismatchError{Key: key, Expected: kind, Actual: it.val.Kind()}
	}
	it.touch(now)
	return fn(it.val)
}

// Delete deletes the key. Returns true if the key existed and was deleted
func (m *MapStorage) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.liveLocked(key, m.nowNano()) {
		return false
	}
	m.removeLocked(key)
	return true
}

// Exists returns true if the key is present and not expired
func (m *MapStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[key]
	return ok && !m.expiredLocked(key, m.nowNano())
}

// SetExpiration sets an absolute deadline for the key, a zero time removes it.
// A deadline in the past deletes the key
func (m *MapStorage) SetExpiration(key string, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowNano()
	if !m.liveLocked(key, now) {
		return false
	}

	if at.IsZero() {
		delete(m.expires, key)
		return true
	}

	exp := deadline(at)
	if now >= exp {
		m.removeLocked(key)
		return true
	}
	m.expires[key] = exp
	return true
}

// Persist removes the expiration date of the key, making it eternal.
// Returns true only if the key had a deadline
func (m *MapStorage) Persist(key string) bool {
	m.mu.RLock()
	_, ok := m.data[key]
	_, hasExp := m.expires[key]
	m.mu.RUnlock()

	if !ok || !hasExp {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.liveLocked(key, m.nowNano()) {
		return false
	}
	if _, hasExp = m.expires[key]; !hasExp {
		return false
	}

	delete(m.expires, key)
	return true
}

// TTL returns the remaining lifetime of the key
func (m *MapStorage) TTL(key string) TTL {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// key does not exist
	if _, ok := m.data[key]; !ok {
		return TTL{State: TTLAbsent}
	}

	exp, hasExp := m.expires[key]
	// key without TTL
	if !hasExp {
		return TTL{State: TTLNoExpiration}
	}

	now := m.nowNano()
	if now >= exp {
		return TTL{State: TTLAbsent}
	}

	return TTL{State: TTLRemaining, Remaining: time.Duration(exp - now), At: time.Unix(0, exp)}
}

// Rename moves src to dst together with its deadline. With nx set an existing dst
// is left alone and false is returned. ErrNoSuchKey is returned when src is absent
func (m *MapStorage) Rename(src, dst string, nx bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return renameLocked(m, m, src, dst, nx, m.nowNano())
}

// Copy duplicates src into dst together with its deadline. Returns false when src
// is absent, src equals dst, or dst exists and replace is not set
func (m *MapStorage) Copy(src, dst string, replace bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return copyLocked(m, m, src, dst, replace, m.nowNano())
}

// renameLocked moves a key between two shards that may be the same. Caller holds both write locks
func renameLocked(from, to *MapStorage, src, dst string, nx bool, now int64) (bool, error) {
	if !from.liveLocked(src, now) {
		return false, ErrNoSuchKey
	}
	if from == to && src == dst {
		return !nx, nil
	}
	if to.liveLocked(dst, now) {
		if nx {
			return false, nil
		}
		to.removeLocked(dst)
	}

	it := from.data[src]
	exp, hasExp := from.expires[src]
	from.removeLocked(src)

	to.insertLocked(dst, it)
	if hasExp {
		to.expires[dst] = exp
	}
	return true, nil
}

// copyLocked duplicates a key between two shards that may be the same. Caller holds both write locks
func copyLocked(from, to *MapStorage, src, dst string, replace bool, now int64) bool {
	if from == to && src == dst {
		return false
	}
	if !from.liveLocked(src, now) {
		return false
	}
	if to.liveLocked(dst, now) {
		if !replace {
			return false
		}
		to.removeLocked(dst)
	}

	orig := from.data[src]
	it := &item{val: orig.val.Clone()}
	it.freq.Store(lfuInitial)
	it.touch(now)
	to.insertLocked(dst, it)
	if exp, ok := from.expires[src]; ok {
		to.expires[dst] = exp
	}
	return true
}

// KeyCount returns the number of keys that are not expired
func (m *MapStorage) KeyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := len(m.data)
	now := m.nowNano()
	for _, exp := range m.expires {
		if now >= exp {
			count--
		}
	}
	return count
}

// Keys returns the keys that are not expired
func (m *MapStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.nowNano()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if !m.expiredLocked(key, now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// ClearAll removes every key
func (m *MapStorage) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mem.used.Add(-m.used)
	m.used = 0
	m.data = make(map[string]*item)
	m.expires = make(map[string]int64)
}

// DeleteExpired collects expired keys under the read lock, then removes them
// in chunks of batch keys under the write lock. A closed stop channel ends the
// pass between chunks
func (m *MapStorage) DeleteExpired(batch int, stop <-chan struct{}) SweepStats {
	if batch <= 0 {
		batch = defaultSweepBatch
	}

	m.mu.RLock()
	now := m.nowNano()
	stats := SweepStats{Scanned: len(m.expires)}
	var candidates []string
	for key, exp := range m.expires {
		if now >= exp {
			candidates = append(candidates, key)
		}
	}
	m.mu.RUnlock()

	for start := 0; start < len(candidates); start += batch {
		select {
		case <-stop:
			m.stats.expiredActive.Add(int64(stats.Removed))
			return stats
		default:
		}

		end := min(start+batch, len(candidates))

		m.mu.Lock()
		now = m.nowNano()
		for _, key := range candidates[start:end] {
			// the key may have been rewritten or persisted since it was collected
			if m.expiredLocked(key, now) {
				m.removeLocked(key)
				stats.Removed++
			}
		}
		m.mu.Unlock()
	}

	m.stats.expiredActive.Add(int64(stats.Removed))
	return stats
}

// trackMemory switches size accounting of the shard on or off
func (m *MapStorage) trackMemory(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if on == m.tracked {
		return
	}

	if !on {
		m.mem.used.Add(-m.used)
		m.used = 0
		for _, it := range m.data {
			it.size = 0
		}
		m.tracked = false
		return
	}

	m.tracked = true
	for key, it := range m.data {
		it.size = 0
		m.resizeLocked(key, it)
	}
}

// measure computes the footprint of the shard without accounting it
func (m *MapStorage) measure() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for key, it := range m.data {
		total += footprint(key, it.val)
	}
	return total
}

// sample passes at most n eviction candidates to offer and returns how many it passed
func (m *MapStorage) sample(policy EvictionPolicy, n int, offer func(candidate)) int {
	if n <= 0 {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	offered := 0
	emit := func(key string, it *item) {
		c := candidate{shard: m, key: key}
		switch policy {
		case AllKeysLRU, VolatileLRU:
			c.score = it.access.Load()
		case AllKeysLFU, VolatileLFU:
			c.score = int64(it.freq.Load())
		case VolatileTTL:
			c.score = m.expires[key]
		default:
			c.score = rand.Int64()
		}
		offer(c)
		offered++
	}

	// map iteration starts at a random position
	if policy.volatile() {
		for key := range m.expires {
			if offered >= n {
				break
			}
			emit(key, m.data[key])
		}
		return offered
	}

	for key, it := range m.data {
		if offered >= n {
			break
		}
		emit(key, it)
	}
	return offered
}

// evict removes key if it is still present
func (m *MapStorage) evict(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok {
		return false
	}
	m.removeLocked(key)
	return true
}

// SetMaxMemory sets the memory limit in bytes, 0 removes it
func (m *MapStorage) SetMaxMemory(bytes int64) {
	m.mem.setLimit(bytes, []*MapStorage{m})
}

// SetEvictionPolicy selects the keys FreeMemory removes
func (m *MapStorage) SetEvictionPolicy(policy EvictionPolicy) {
	m.mem.policy.Store(int32(policy))
}

// MaxMemory returns the memory limit and the eviction policy
func (m *MapStorage) MaxMemory() (int64, EvictionPolicy) {
	return m.mem.limit.Load(), m.mem.evictionPolicy()
}

// MemoryUsage returns the estimated footprint of all keys in bytes
func (m *MapStorage) MemoryUsage() int64 {
	return m.mem.usage([]*MapStorage{m})
}

// FreeMemory evicts keys until usage is under the limit
func (m *MapStorage) FreeMemory() error {
	return freeMemory([]*MapStorage{m}, m.mem, m.stats)
}

// Stats returns keyspace counters
func (m *MapStorage) Stats() Stats {
	return m.stats.snapshot()
}
