package command

import (
	"bytes"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/eternalApril/moondb/internal/storage"
	"github.com/eternalApril/moondb/internal/value"
)

func get(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	entry, ok := ctx.storage.Read(key)
	if !ok {
		return value.MakeNull(), nil
	}
	if !entry.Value.Kind().IsScalar() {
		return value.MakeNull(), &storage.TypeMismatchError{Key: key, Expected: value.KindBytes, Actual: entry.Value.Kind()}
	}
	return entry.Value, nil
}

// setOptions is the parsed tail of a SET command
type setOptions struct {
	policy    storage.ExpirationPolicy
	cond      storage.Condition
	ttlSource string // option that set the policy, empty when none
}

// parseSetOptions reads EX, PX, EXAT, PXAT, KEEPTTL, NX and XX starting at argument 2
func parseSetOptions(ctx *context) (setOptions, error) {
	opts := setOptions{policy: storage.NoExpiration(), cond: storage.Always}

	for i := 2; i < len(ctx.args); i++ {
		opt, err := ctx.upper(i)
		if err != nil {
			return opts, err
		}

		switch opt {
		case "NX":
			if opts.cond == storage.IfPresent {
				return opts, syntaxError("NX cannot use with XX")
			}
			opts.cond = storage.IfAbsent
		case "XX":
			if opts.cond == storage.IfAbsent {
				return opts, syntaxError("XX cannot use with NX")
			}
			opts.cond = storage.IfPresent
		case "KEEPTTL":
			if opts.ttlSource != "" {
				return opts, syntaxError("TTL already specified")
			}
			opts.ttlSource = opt
			opts.policy = storage.KeepTTL()
		case "EX", "PX", "EXAT", "PXAT":
			if opts.ttlSource != "" {
				return opts, syntaxError("TTL already specified")
			}
			if i+1 >= len(ctx.args) {
				return opts, syntaxError("%s requires a value", opt)
			}
			i++

			n, err := ctx.integer(i)
			if err != nil {
				return opts, err
			}
			if n <= 0 {
				return opts, invalidExpire(ctx.name)
			}

			at, err := setDeadline(ctx, opt, n)
			if err != nil {
				return opts, err
			}
			opts.ttlSource = opt
			opts.policy = storage.ExpireAt(at)
		default:
			return opts, syntaxError("unsupported option '%s'", opt)
		}
	}

	return opts, nil
}

func setDeadline(ctx *context, opt string, n int64) (time.Time, error) {
	switch opt {
	case "EX":
		return ctx.deadline(n, time.Second)
	case "PX":
		return ctx.deadline(n, time.Millisecond)
	case "EXAT":
		return ctx.instant(n, time.Second)
	default:
		return ctx.instant(n, time.Millisecond)
	}
}

// set stores a scalar as Bytes. It answers Null when NX or XX prevented the write
func set(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	v, err := ctx.payload(1)
	if err != nil {
		return value.MakeNull(), err
	}
	opts, err := parseSetOptions(ctx)
	if err != nil {
		return value.MakeNull(), err
	}

	if !ctx.storage.WriteIf(key, v, opts.policy, opts.cond) {
		return value.MakeNull(), nil
	}
	return okValue(), nil
}

// mget answers Null for keys that are missing or hold a collection
func mget(ctx *context) (value.Value, error) {
	keys, err := ctx.strs(0)
	if err != nil {
		return value.MakeNull(), err
	}

	out := make([]value.Value, len(keys))
	for i, key := range keys {
		entry, ok := ctx.storage.Read(key)
		if !ok || !entry.Value.Kind().IsScalar() {
			out[i] = value.MakeNull()
			continue
		}
		out[i] = entry.Value
	}
	return value.MakeList(out...), nil
}

// mset writes every pair. Each key is written atomically, the batch as a whole is not
func mset(ctx *context) (value.Value, error) {
	if len(ctx.args)%2 != 0 {
		return value.MakeNull(), wrongArgs(ctx.name)
	}

	keys := make([]string, 0, len(ctx.args)/2)
	vals := make([]value.Value, 0, len(ctx.args)/2)
	for i := 0; i < len(ctx.args); i += 2 {
		key, err := ctx.str(i)
		if err != nil {
			return value.MakeNull(), err
		}
		v, err := ctx.payload(i + 1)
		if err != nil {
			return value.MakeNull(), err
		}
		keys = append(keys, key)
		vals = append(vals, v)
	}

	for i, key := range keys {
		ctx.storage.Write(key, vals[i], storage.NoExpiration())
	}
	return okValue(), nil
}

func appendCmd(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	suffix, err := value.ArgBytes(ctx.args[1])
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.MutateTyped(key, value.KindBytes, func(v *value.Value) (value.Value, error) {
		v.SetBytes(slices.Concat(v.Bytes(), suffix))
		return value.MakeInteger(int64(v.Len())), nil
	})
}

// maxStringLength caps SETRANGE the way proto-max-bulk-len does
const maxStringLength = 512 << 20

// getrange answers the inclusive byte range [start, end]. Negative offsets count from the end
func getrange(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	start, err := ctx.integer(1)
	if err != nil {
		return value.MakeNull(), err
	}
	end, err := ctx.integer(2)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindBytes, func(v value.Value) (value.Value, error) {
		b := v.Bytes()
		lo, hi := rangeBounds(start, end, int64(len(b)))
		if lo > hi {
			return value.MakeString(""), nil
		}
		return value.MakeBytes(bytes.Clone(b[lo : hi+1])), nil
	})
}

// setrange overwrites part of a string starting at offset, padding with zero bytes.
// It answers the new length
func setrange(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	offset, err := ctx.integer(1)
	if err != nil {
		return value.MakeNull(), err
	}
	patch, err := value.ArgBytes(ctx.args[2])
	if err != nil {
		return value.MakeNull(), err
	}

	if offset < 0 {
		return value.MakeNull(), ErrOffsetRange
	}
	if offset+int64(len(patch)) > maxStringLength {
		return value.MakeNull(), ErrStringTooLong
	}
	if len(patch) == 0 {
		// nothing to write, a missing key stays missing
		return strlen(ctx)
	}

	return ctx.storage.MutateTyped(key, value.KindBytes, func(v *value.Value) (value.Value, error) {
		cur := v.Bytes()
		out := make([]byte, max(int64(len(cur)), offset+int64(len(patch))))
		copy(out, cur)
		copy(out[offset:], patch)
		v.SetBytes(out)
		return value.MakeInteger(int64(len(out))), nil
	})
}

func strlen(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindBytes, func(v value.Value) (value.Value, error) {
		return value.MakeInteger(int64(v.Len())), nil
	})
}

// incrBy builds INCR, DECR, INCRBY and DECRBY. sign is the direction,
// withArg tells whether the amount is read from the second argument
func incrBy(sign int64, withArg bool) commandFunc {
	return func(ctx *context) (value.Value, error) {
		key, err := ctx.str(0)
		if err != nil {
			return value.MakeNull(), err
		}

		delta := sign
		if withArg {
			n, err := ctx.integer(1)
			if err != nil {
				return value.MakeNull(), err
			}
			if sign < 0 && n == math.MinInt64 {
				return value.MakeNull(), ErrOverflow
			}
			delta = n * sign
		}

		return ctx.storage.MutateTyped(key, value.KindBytes, func(v *value.Value) (value.Value, error) {
			var cur int64
			if v.Len() > 0 {
				n, err := value.ToInt64(*v)
				if err != nil {
					return value.MakeNull(), ErrNotInteger
				}
				cur = n
			}

			if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
				return value.MakeNull(), ErrOverflow
			}

			next := cur + delta
			v.SetBytes(strconv.AppendInt(nil, next, 10))
			return value.MakeInteger(next), nil
		})
	}
}
