package command

import (
	"sort"
	"time"

	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
)

func del(ctx *context) (value.Value, error) {
	keys, err := ctx.strs(0)
	if err != nil {
		return value.MakeNull(), err
	}

	var deleted int64
	for _, key := range keys {
		if ctx.storage.Delete(key) {
			deleted++
		}
	}
	return value.MakeInteger(deleted), nil
}

// exists counts a key once per mention, so "EXISTS k k" can return 2
func exists(ctx *context) (value.Value, error) {
	keys, err := ctx.strs(0)
	if err != nil {
		return value.MakeNull(), err
	}

	var found int64
	for _, key := range keys {
		if ctx.storage.Exists(key) {
			found++
		}
	}
	return value.MakeInteger(found), nil
}

// expire builds EXPIRE, PEXPIRE, EXPIREAT and PEXPIREAT.
// A deadline that is not in the future deletes the key
func expire(unit time.Duration, absolute bool) commandFunc {
	return func(ctx *context) (value.Value, error) {
		key, err := ctx.str(0)
		if err != nil {
			return value.MakeNull(), err
		}
		n, err := ctx.integer(1)
		if err != nil {
			return value.MakeNull(), err
		}

		var at time.Time
		if absolute {
			if n < 0 {
				// a negative timestamp is simply in the past
				n = 0
			}
			at, err = ctx.instant(n, unit)
		} else {
			at, err = ctx.deadline(n, unit)
		}
		if err != nil {
			return value.MakeNull(), err
		}

		return boolInt(ctx.storage.SetExpiration(key, at)), nil
	}
}

// rename serves RENAME and RENAMENX. RENAMENX answers 0 when dst already exists
func rename(nx bool) commandFunc {
	return func(ctx *context) (value.Value, error) {
		src, err := ctx.str(0)
		if err != nil {
			return value.MakeNull(), err
		}
		dst, err := ctx.str(1)
		if err != nil {
			return value.MakeNull(), err
		}

		renamed, err := ctx.storage.Rename(src, dst, nx)
		if err != nil {
			return value.MakeNull(), err
		}
		if nx {
			return boolInt(renamed), nil
		}
		return okValue(), nil
	}
}

// copyCmd duplicates a key with its deadline. Only REPLACE is accepted after the keys
func copyCmd(ctx *context) (value.Value, error) {
	src, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	dst, err := ctx.str(1)
	if err != nil {
		return value.MakeNull(), err
	}

	replace := false
	for i := 2; i < len(ctx.args); i++ {
		opt, err := ctx.upper(i)
		if err != nil {
			return value.MakeNull(), err
		}
		if opt != "REPLACE" {
			return value.MakeNull(), syntaxError("unsupported option '%s'", opt)
		}
		replace = true
	}
	if src == dst {
		return value.MakeNull(), ErrSameObject
	}

	return boolInt(ctx.storage.Copy(src, dst, replace)), nil
}

func ttl(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	return value.MakeInteger(ctx.storage.TTL(key).Seconds()), nil
}

func pttl(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	return value.MakeInteger(ctx.storage.TTL(key).Milliseconds()), nil
}

// expireTime builds EXPIRETIME and PEXPIRETIME, the absolute deadline as a unix timestamp
func expireTime(unit time.Duration) commandFunc {
	return func(ctx *context) (value.Value, error) {
		key, err := ctx.str(0)
		if err != nil {
			return value.MakeNull(), err
		}

		t := ctx.storage.TTL(key)
		if t.State != storage.TTLRemaining {
			return value.MakeInteger(int64(t.State)), nil
		}
		if unit == time.Millisecond {
			return value.MakeInteger(t.At.UnixMilli()), nil
		}
		return value.MakeInteger(t.At.Unix()), nil
	}
}

func persist(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	return boolInt(ctx.storage.Persist(key)), nil
}

func typeOf(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	entry, ok := ctx.storage.Read(key)
	if !ok {
		return value.MakeString(value.KindNull.TypeName()), nil
	}
	return value.MakeString(entry.Value.Kind().TypeName()), nil
}

// keys returns the matching live keys in sorted order
func keys(ctx *context) (value.Value, error) {
	pattern, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	all := ctx.storage.Keys()
	matched := make([]string, 0, len(all))
	for _, key := range all {
		if pattern == "*" || globMatch(pattern, key) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	out := make([]value.Value, len(matched))
	for i, key := range matched {
		out[i] = value.MakeString(key)
	}
	return value.MakeList(out...), nil
}
