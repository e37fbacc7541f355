package storage

import (
	"time"

	"github.com/eternalApril/moondb/internal/value"
)

// TTLState tells whether a key exists and whether it has a deadline
type TTLState int

const (
	// TTLAbsent means that the key does not exist or has expired
	TTLAbsent TTLState = -2
	// TTLNoExpiration means that the key exists, but it does not have a TTL
	TTLNoExpiration TTLState = -1
	// TTLRemaining means that the key has an active lifetime
	TTLRemaining TTLState = 1
)

// TTL is the result of a TTL query
type TTL struct {
	State     TTLState
	Remaining time.Duration // only set for TTLRemaining
	At        time.Time     // deadline, only set for TTLRemaining
}

// Seconds returns the remaining lifetime floored to whole seconds,
// or -2/-1 for absent and persistent keys
func (t TTL) Seconds() int64 {
	if t.State != TTLRemaining {
		return int64(t.State)
	}
	return int64(t.Remaining / time.Second)
}

// Milliseconds is Seconds with millisecond resolution
func (t TTL) Milliseconds() int64 {
	if t.State != TTLRemaining {
		return int64(t.State)
	}
	return t.Remaining.Milliseconds()
}

type policyKind byte

const (
	policyNone policyKind = iota
	policyAt
	policyKeep
)

// ExpirationPolicy decides what happens to the deadline of a key on a whole-key write
type ExpirationPolicy struct {
	kind policyKind
	at   time.Time
}

// NoExpiration clears any previous deadline
func NoExpiration() ExpirationPolicy {
	return ExpirationPolicy{kind: policyNone}
}

// ExpireAt sets an absolute deadline. A zero time means no expiration
func ExpireAt(at time.Time) ExpirationPolicy {
	if at.IsZero() {
		return NoExpiration()
	}
	return ExpirationPolicy{kind: policyAt, at: at}
}

// KeepTTL retains the deadline of an existing key. A new key gets none
func KeepTTL() ExpirationPolicy {
	return ExpirationPolicy{kind: policyKeep}
}

// Condition restricts a write to the current presence of the key
type Condition byte

const (
	Always    Condition = iota
	IfAbsent            // NX
	IfPresent           // XX
)

// MutateFunc changes a live value in place and returns the command result.
// It runs while the key is locked and must not call back into the storage.
// If it returns an error it must not have modified v.
type MutateFunc func(v *value.Value) (value.Value, error)

// ViewFunc reads a live value without retaining it
type ViewFunc func(v value.Value) (value.Value, error)

// SweepStats summarizes one active expiration pass
type SweepStats struct {
	Scanned int // keys with a deadline that were looked at
	Removed int // keys physically deleted
}

// Storage is a common interface for working with key-value storages
type Storage interface {
	// Read returns a copy of the entry and true if the key is present and not expired
	Read(key string) (Entry, bool)

	// Write replaces the whole entry. It never type-checks the previous value
	Write(key string, v value.Value, policy ExpirationPolicy)

	// WriteIf is Write guarded by cond. Returns true if the write has been performed
	WriteIf(key string, v value.Value, policy ExpirationPolicy, cond Condition) bool

	// MutateTyped applies fn to the value of key, creating an empty value of kind when absent
	MutateTyped(key string, kind value.Kind, fn MutateFunc) (value.Value, error)

	// ViewTyped applies fn to the value of key, or to the empty form of kind when absent
	ViewTyped(key string, kind value.Kind, fn ViewFunc) (value.Value, error)

	// Delete deletes the key. Returns true if the key existed and was deleted
	Delete(key string) bool

	// Exists returns true if the key is present and not expired
	Exists(key string) bool

	// SetExpiration sets an absolute deadline, a zero time removes it.
	// Returns false if the key is absent
	SetExpiration(key string, at time.Time) bool

	// Persist removes the expiration date of the key, making it eternal.
	// Returns true only if there was a deadline to remove
	Persist(key string) bool

	// TTL returns the remaining lifetime of the key
	TTL(key string) TTL

	// Rename atomically moves src to dst with its deadline. With nx an existing dst wins.
	// Returns ErrNoSuchKey if src is absent
	Rename(src, dst string, nx bool) (bool, error)

	// Copy atomically duplicates src into dst with its deadline
	Copy(src, dst string, replace bool) bool

	// KeyCount returns the number of live keys
	KeyCount() int

	// Keys returns all live keys in no particular order
	Keys() []string

	// ClearAll removes every key
	ClearAll()

	// DeleteExpired physically removes expired keys, taking the write lock for at most batch keys at a time
	DeleteExpired(batch int, stop <-chan struct{}) SweepStats

	// SetMaxMemory sets the memory limit in bytes, 0 disables it
	SetMaxMemory(bytes int64)

	// SetEvictionPolicy selects the keys FreeMemory removes
	SetEvictionPolicy(policy EvictionPolicy)

	// MaxMemory returns the memory limit and the eviction policy
	MaxMemory() (int64, EvictionPolicy)

	// MemoryUsage returns the estimated footprint of all keys in bytes
	MemoryUsage() int64

	// FreeMemory evicts keys until usage is under the limit.
	// Returns ErrOutOfMemory if the policy forbids eviction or no key qualifies
	FreeMemory() error

	// Stats returns keyspace counters
	Stats() Stats
}
