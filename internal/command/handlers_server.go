package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eternalApril/moondb/internal/config"
	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
	"go.uber.org/zap"
)

func ping(ctx *context) (value.Value, error) {
	switch len(ctx.args) {
	case 0:
		return value.MakeString("PONG"), nil
	case 1:
		return ctx.payload(0)
	default:
		return value.MakeNull(), wrongArgs(ctx.name)
	}
}

func echo(ctx *context) (value.Value, error) {
	return ctx.payload(0)
}

func dbsize(ctx *context) (value.Value, error) {
	return value.MakeInteger(int64(ctx.storage.KeyCount())), nil
}

// flush serves FLUSHDB and FLUSHALL, which are the same with a single database.
// The ASYNC and SYNC modifiers are accepted and both clear synchronously
func flush(ctx *context) (value.Value, error) {
	if len(ctx.args) > 1 {
		return value.MakeNull(), syntaxError("too many arguments for '%s'", strings.ToLower(ctx.name))
	}
	if len(ctx.args) == 1 {
		mode, err := ctx.upper(0)
		if err != nil {
			return value.MakeNull(), err
		}
		if mode != "ASYNC" && mode != "SYNC" {
			return value.MakeNull(), syntaxError("unknown flush mode '%s'", mode)
		}
	}

	ctx.storage.ClearAll()
	return okValue(), nil
}

// info renders keyspace statistics as "field:value" lines grouped into sections
func (e *Engine) info(ctx *context) (value.Value, error) {
	sections := map[string]bool{}
	for i := range ctx.args {
		s, err := ctx.str(i)
		if err != nil {
			return value.MakeNull(), err
		}
		sections[strings.ToLower(s)] = true
	}
	all := len(sections) == 0 || sections["all"] || sections["default"] || sections["everything"]

	var b strings.Builder
	if all || sections["server"] {
		b.WriteString("# Server\r\n")
		fmt.Fprintf(&b, "moondb_version:%s\r\n", since)
		fmt.Fprintf(&b, "gc_enabled:%t\r\n", e.cfg.GC.Enabled)
		fmt.Fprintf(&b, "gc_interval_ms:%d\r\n", e.cfg.GC.Interval.Milliseconds())
		b.WriteString("\r\n")
	}

	stats := ctx.storage.Stats()
	if all || sections["stats"] {
		b.WriteString("# Stats\r\n")
		fmt.Fprintf(&b, "keyspace_hits:%d\r\n", stats.Hits)
		fmt.Fprintf(&b, "keyspace_misses:%d\r\n", stats.Misses)
		fmt.Fprintf(&b, "expired_keys:%d\r\n", stats.ExpiredLazy+stats.ExpiredActive)
		fmt.Fprintf(&b, "expired_keys_lazy:%d\r\n", stats.ExpiredLazy)
		fmt.Fprintf(&b, "expired_keys_active:%d\r\n", stats.ExpiredActive)
		b.WriteString("\r\n")
	}

	if all || sections["memory"] {
		limit, policy := ctx.storage.MaxMemory()
		b.WriteString("# Memory\r\n")
		fmt.Fprintf(&b, "used_memory:%d\r\n", ctx.storage.MemoryUsage())
		fmt.Fprintf(&b, "maxmemory:%d\r\n", limit)
		fmt.Fprintf(&b, "maxmemory_policy:%s\r\n", policy)
		fmt.Fprintf(&b, "evicted_keys:%d\r\n", stats.Evicted)
		b.WriteString("\r\n")
	}

	if all || sections["keyspace"] {
		b.WriteString("# Keyspace\r\n")
		fmt.Fprintf(&b, "db0:keys=%d\r\n", ctx.storage.KeyCount())
	}

	return value.MakeString(b.String()), nil
}

// cmd serves COMMAND and its COUNT, DOCS and INFO subcommands
func cmd(ctx *context) (value.Value, error) {
	if len(ctx.args) == 0 {
		return getAllCommands(), nil
	}

	sub, err := ctx.upper(0)
	if err != nil {
		return value.MakeNull(), err
	}
	names, err := ctx.strs(1)
	if err != nil {
		return value.MakeNull(), err
	}

	switch sub {
	case "COUNT":
		if len(names) != 0 {
			return value.MakeNull(), wrongArgs("COMMAND|COUNT")
		}
		return value.MakeInteger(int64(len(commandRegistry))), nil
	case "DOCS":
		return getCommandsDocs(names), nil
	case "INFO":
		if len(names) == 0 {
			return getAllCommands(), nil
		}
		return getCommandsInfo(names), nil
	default:
		return value.MakeNull(), syntaxError("unknown subcommand '%s'", sub)
	}
}

var configParams = []string{"maxmemory", "maxmemory-policy"}

// configCmd serves CONFIG GET and CONFIG SET for the memory settings
func (e *Engine) configCmd(ctx *context) (value.Value, error) {
	sub, err := ctx.upper(0)
	if err != nil {
		return value.MakeNull(), err
	}
	args, err := ctx.strs(1)
	if err != nil {
		return value.MakeNull(), err
	}

	switch sub {
	case "GET":
		if len(args) == 0 {
			return value.MakeNull(), wrongArgs("CONFIG|GET")
		}
		return configGet(ctx.storage, args), nil
	case "SET":
		if len(args) == 0 || len(args)%2 != 0 {
			return value.MakeNull(), wrongArgs("CONFIG|SET")
		}
		if err := e.configSet(ctx.storage, args); err != nil {
			return value.MakeNull(), err
		}
		return okValue(), nil
	default:
		return value.MakeNull(), syntaxError("unknown subcommand '%s'", sub)
	}
}

func configGet(s storage.Storage, patterns []string) value.Value {
	limit, policy := s.MaxMemory()
	current := map[string]string{
		"maxmemory":        fmt.Sprint(limit),
		"maxmemory-policy": policy.String(),
	}

	out := make(map[string]value.Value)
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		for _, name := range configParams {
			if globMatch(pattern, name) {
				out[name] = value.MakeString(current[name])
			}
		}
	}
	return value.MakeMap(out)
}

// configSet validates every pair before applying any of them
func (e *Engine) configSet(s storage.Storage, args []string) error {
	var (
		limit     config.ByteSize
		policy    storage.EvictionPolicy
		setLimit  bool
		setPolicy bool
	)
	for i := 0; i < len(args); i += 2 {
		name, arg := strings.ToLower(args[i]), args[i+1]
		switch name {
		case "maxmemory":
			if err := limit.UnmarshalText([]byte(arg)); err != nil {
				return fmt.Errorf("invalid argument '%s' for CONFIG SET 'maxmemory': %w", arg, err)
			}
			setLimit = true
		case "maxmemory-policy":
			p, err := storage.ParseEvictionPolicy(arg)
			if err != nil {
				return fmt.Errorf("invalid argument '%s' for CONFIG SET 'maxmemory-policy': %w", arg, err)
			}
			policy, setPolicy = p, true
		default:
			return fmt.Errorf("%w: unknown option or number of arguments for CONFIG SET - '%s'", ErrSyntax, name)
		}
	}

	if setPolicy {
		s.SetEvictionPolicy(policy)
	}
	if setLimit {
		s.SetMaxMemory(int64(limit))
		e.metrics.SetMaxMemory(int64(limit))

		// shrinking the limit evicts right away when the policy allows it
		if err := s.FreeMemory(); errors.Is(err, storage.ErrOutOfMemory) {
			e.logger.Warn("maxmemory is below the current usage",
				zap.Int64("maxmemory", int64(limit)),
				zap.Int64("used_memory", s.MemoryUsage()),
			)
		}
	}

	e.logger.Info("configuration changed", zap.Strings("args", args))
	return nil
}
