// Package moondb is an embedded, in-process key-value store with a Redis-like
// command set. Keys hold typed values (strings, hashes, lists and sets) with
// optional per-key expiration, and every operation on a key is atomic.
//
//	db, err := moondb.Open(nil)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	db.Set("greeting", "hello")
//	s, _ := db.Get("greeting")
package moondb

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eternalApril/moondb/internal/command"
	"github.com/eternalApril/moondb/internal/config"
	"github.com/eternalApril/moondb/internal/metrics"
	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type (
	// Value is a typed command result
	Value = value.Value
	// Kind is the type tag of a Value
	Kind = value.Kind
	// Config is the store configuration
	Config = config.Config
	// Stats are the keyspace counters
	Stats = storage.Stats
	// EvictionPolicy selects the keys removed once the memory limit is exceeded
	EvictionPolicy = storage.EvictionPolicy
)

const (
	KindNull    = value.KindNull
	KindBytes   = value.KindBytes
	KindInteger = value.KindInteger
	KindBoolean = value.KindBoolean
	KindList    = value.KindList
	KindMap     = value.KindMap
	KindSet     = value.KindSet

	NoEviction     = storage.NoEviction
	AllKeysLRU     = storage.AllKeysLRU
	AllKeysLFU     = storage.AllKeysLFU
	AllKeysRandom  = storage.AllKeysRandom
	VolatileLRU    = storage.VolatileLRU
	VolatileLFU    = storage.VolatileLFU
	VolatileRandom = storage.VolatileRandom
	VolatileTTL    = storage.VolatileTTL
)

var (
	// ErrClosed is returned by every call on a closed DB
	ErrClosed = errors.New("moondb: database is closed")

	ErrWrongType      = storage.ErrWrongType
	ErrParse          = value.ErrParse
	ErrUnknownCommand = command.ErrUnknownCommand
	ErrWrongArgs      = command.ErrWrongArgs
	ErrSyntax         = command.ErrSyntax
	ErrNotInteger     = command.ErrNotInteger
	ErrInvalidExpire  = command.ErrInvalidExpire
	ErrOverflow       = command.ErrOverflow
	ErrOutOfMemory    = storage.ErrOutOfMemory
	ErrNoSuchKey      = storage.ErrNoSuchKey
)

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads config.yaml from path (or the working directory) with MOONDB_* overrides
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// LoadConfigFile reads an explicit configuration file with MOONDB_* overrides
func LoadConfigFile(file string) (*Config, error) {
	return config.LoadFile(file)
}

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures Open
type Option func(*options)

// WithLogger routes the store logs to logger. By default nothing is logged
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the time source for expiration, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// DB is an open store. It is safe for concurrent use
type DB struct {
	engine  *command.Engine
	storage *storage.ShardedMapStorage
	metrics *metrics.Metrics
	logger  *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// Open creates a store from cfg. A nil cfg means DefaultConfig
func Open(cfg *Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}

	// Validate has accepted the policy name
	policy, _ := storage.ParseEvictionPolicy(cfg.Storage.MaxMemoryPolicy)
	s, err := storage.NewShardedMapStorage(cfg.Storage.Shards,
		storage.WithClock(o.now),
		storage.WithMaxMemory(int64(cfg.Storage.MaxMemory), policy),
		storage.WithEvictionSamples(cfg.Storage.MaxMemorySamples),
	)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	engine, err := command.NewEngine(s, cfg, o.logger, command.WithMetrics(m), command.WithClock(o.now))
	if err != nil {
		return nil, err
	}

	o.logger.Info("moondb opened",
		zap.Uint("shards", cfg.Storage.Shards),
		zap.Stringer("maxmemory", cfg.Storage.MaxMemory),
		zap.Stringer("maxmemory_policy", policy),
		zap.Bool("gc", cfg.GC.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	return &DB{
		engine:  engine,
		storage: s,
		metrics: m,
		logger:  o.logger,
	}, nil
}

// Do runs a command by name. Slice arguments are flattened into separate arguments
func (db *DB) Do(name string, args ...any) (Value, error) {
	if db.closed.Load() {
		return value.MakeNull(), ErrClosed
	}

	vals, err := value.Args(args...)
	if err != nil {
		return value.MakeNull(), err
	}
	return db.engine.Execute(name, vals)
}

// Close stops the background sweeper. Calling it again is a no-op
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.closed.Store(true)
		db.engine.Shutdown()
		db.logger.Info("moondb closed")
		_ = db.logger.Sync()
	})
	return nil
}

// Registry returns the prometheus registry of the store, nil when metrics are disabled
func (db *DB) Registry() *prometheus.Registry {
	return db.metrics.Registry()
}

// Stats returns the keyspace counters
func (db *DB) Stats() Stats {
	return db.storage.Stats()
}

// SetMaxMemory changes the memory limit in bytes, 0 removes it.
// Keys are evicted right away when the policy allows it
func (db *DB) SetMaxMemory(bytes int64) error {
	_, err := db.Do("CONFIG", "SET", "maxmemory", bytes)
	return err
}

// SetMaxMemoryPolicy selects the eviction policy by name, e.g. "allkeys-lru"
func (db *DB) SetMaxMemoryPolicy(policy string) error {
	_, err := db.Do("CONFIG", "SET", "maxmemory-policy", policy)
	return err
}

// MaxMemory returns the memory limit and the eviction policy
func (db *DB) MaxMemory() (int64, EvictionPolicy) {
	return db.storage.MaxMemory()
}

// MemoryUsage returns the estimated footprint of all keys in bytes
func (db *DB) MemoryUsage() int64 {
	return db.storage.MemoryUsage()
}
