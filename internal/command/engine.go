package command

import (
	"strings"
	"sync"
	"time"

	"github.com/eternalApril/moondb/internal/config"
	"github.com/eternalApril/moondb/internal/metrics"
	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/sweeper"
	"github.com/eternalApril/moondb/internal/value"
	"go.uber.org/zap"
)

// Option configures an Engine
type Option func(*Engine)

// WithMetrics makes the engine record command metrics into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces the time source used to resolve relative deadlines.
// It must be the same clock the storage checks deadlines with
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine coordinates the execution of commands and manages the background tasks of the store
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	storage  storage.Storage    // Underlying KV storage
	cfg      *config.Config     // Configuration engine
	sweeper  *sweeper.Sweeper   // Active expiration, nil when disabled
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
	stopOnce sync.Once // Ensures that the stop happens only once
}

// NewEngine initializes the engine, registers the basic commands, and
// if enabled in the config, starts background cleanup of outdated keys
func NewEngine(s storage.Storage, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		commands: make(map[string]command),
		storage:  s,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}

	engine.registerBasicCommand()
	engine.metrics.BindKeyspace(s)
	limit, _ := s.MaxMemory()
	engine.metrics.SetMaxMemory(limit)

	if cfg.GC.Enabled {
		engine.sweeper = sweeper.New(s, cfg.GC, logger, engine.metrics)
		engine.sweeper.Start()
	}

	return engine, nil
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	// connection and server
	e.register("PING", commandFunc(ping))
	e.register("ECHO", commandFunc(echo))
	e.register("DBSIZE", commandFunc(dbsize))
	e.register("FLUSHDB", commandFunc(flush))
	e.register("FLUSHALL", commandFunc(flush))
	e.register("INFO", commandFunc(e.info))
	e.register("COMMAND", commandFunc(cmd))
	e.register("CONFIG", commandFunc(e.configCmd))

	// generic
	e.register("DEL", commandFunc(del))
	e.register("UNLINK", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("EXPIRE", commandFunc(expire(time.Second, false)))
	e.register("PEXPIRE", commandFunc(expire(time.Millisecond, false)))
	e.register("EXPIREAT", commandFunc(expire(time.Second, true)))
	e.register("PEXPIREAT", commandFunc(expire(time.Millisecond, true)))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("EXPIRETIME", commandFunc(expireTime(time.Second)))
	e.register("PEXPIRETIME", commandFunc(expireTime(time.Millisecond)))
	e.register("PERSIST", commandFunc(persist))
	e.register("TYPE", commandFunc(typeOf))
	e.register("KEYS", commandFunc(keys))
	e.register("RENAME", commandFunc(rename(false)))
	e.register("RENAMENX", commandFunc(rename(true)))
	e.register("COPY", commandFunc(copyCmd))

	// string
	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("MGET", commandFunc(mget))
	e.register("MSET", commandFunc(mset))
	e.register("APPEND", commandFunc(appendCmd))
	e.register("STRLEN", commandFunc(strlen))
	e.register("GETRANGE", commandFunc(getrange))
	e.register("SETRANGE", commandFunc(setrange))
	e.register("INCR", commandFunc(incrBy(1, false)))
	e.register("DECR", commandFunc(incrBy(-1, false)))
	e.register("INCRBY", commandFunc(incrBy(1, true)))
	e.register("DECRBY", commandFunc(incrBy(-1, true)))

	// hash
	e.register("HSET", commandFunc(hset))
	e.register("HGET", commandFunc(hget))
	e.register("HMGET", commandFunc(hmget))
	e.register("HINCRBY", commandFunc(hincrby))
	e.register("HGETALL", commandFunc(hgetall))
	e.register("HDEL", commandFunc(hdel))
	e.register("HEXISTS", commandFunc(hexists))
	e.register("HLEN", commandFunc(hlen))
	e.register("HKEYS", commandFunc(hkeys))
	e.register("HVALS", commandFunc(hvals))

	// list
	e.register("LPUSH", commandFunc(push(true)))
	e.register("RPUSH", commandFunc(push(false)))
	e.register("LPOP", commandFunc(pop(true)))
	e.register("RPOP", commandFunc(pop(false)))
	e.register("LLEN", commandFunc(llen))
	e.register("LINDEX", commandFunc(lindex))
	e.register("LRANGE", commandFunc(lrange))

	// set
	e.register("SADD", commandFunc(sadd))
	e.register("SREM", commandFunc(srem))
	e.register("SMEMBERS", commandFunc(smembers))
	e.register("SISMEMBER", commandFunc(sismember))
	e.register("SCARD", commandFunc(scard))
	e.register("SPOP", commandFunc(spop))
}

// Execute finds the command by name and executes it with the passed arguments
func (e *Engine) Execute(name string, args []value.Value) (value.Value, error) {
	name = strings.ToUpper(name)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return value.MakeNull(), unknownCommand(name)
	}
	if err := checkArity(name, len(args)); err != nil {
		e.metrics.ObserveCommand(name, err, 0)
		return value.MakeNull(), err
	}
	// commands that may grow the dataset first make room under the memory limit
	if denyOOM(name) {
		if err := e.storage.FreeMemory(); err != nil {
			e.metrics.ObserveCommand(name, err, 0)
			e.logger.Debug("command rejected", zap.String("cmd", name), zap.Error(err))
			return value.MakeNull(), err
		}
	}

	ctx := &context{
		name:    name,
		args:    args,
		storage: e.storage,
		now:     e.now(),
	}

	begin := time.Now()
	res, err := cmd.execute(ctx)
	e.metrics.ObserveCommand(name, err, time.Since(begin))

	if err != nil {
		e.logger.Debug("command failed", zap.String("cmd", name), zap.Error(err))
		return value.MakeNull(), err
	}
	return res, nil
}

// Has reports whether name is a registered command
func (e *Engine) Has(name string) bool {
	_, ok := e.commands[strings.ToUpper(name)]
	return ok
}

// Storage returns the storage the engine executes against
func (e *Engine) Storage() storage.Storage {
	return e.storage
}

// Shutdown shuts down the engine and its background services correctly
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		if e.sweeper != nil {
			e.sweeper.Stop()
			e.logger.Info("GC background process stopped")
		}
	})
}
