package command

import (
	"math"
	"sort"
	"strconv"

	"github.com/eternalApril/moondb/internal/value"
)

// hset answers the number of fields that were added, not updated
func hset(ctx *context) (value.Value, error) {
	if len(ctx.args)%2 != 1 {
		return value.MakeNull(), wrongArgs(ctx.name)
	}

	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	names := make([]string, 0, len(ctx.args)/2)
	vals := make([]value.Value, 0, len(ctx.args)/2)
	for i := 1; i < len(ctx.args); i += 2 {
		name, err := ctx.str(i)
		if err != nil {
			return value.MakeNull(), err
		}
		v, err := ctx.payload(i + 1)
		if err != nil {
			return value.MakeNull(), err
		}
		names = append(names, name)
		vals = append(vals, v)
	}

	return ctx.storage.MutateTyped(key, value.KindMap, func(v *value.Value) (value.Value, error) {
		var added int64
		for i, name := range names {
			if v.SetField(name, vals[i]) {
				added++
			}
		}
		return value.MakeInteger(added), nil
	})
}

func hget(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	field, err := ctx.str(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		f, ok := v.Field(field)
		if !ok {
			return value.MakeNull(), nil
		}
		return f.Clone(), nil
	})
}

func hgetall(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		return v.Clone(), nil
	})
}

// hmget answers one value per field, Null for the missing ones
func hmget(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	fields, err := ctx.strs(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		out := make([]value.Value, len(fields))
		for i, name := range fields {
			f, ok := v.Field(name)
			if !ok {
				out[i] = value.MakeNull()
				continue
			}
			out[i] = f.Clone()
		}
		return value.MakeList(out...), nil
	})
}

// hincrby adds an integer to a field, a missing field counts as 0
func hincrby(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	field, err := ctx.str(1)
	if err != nil {
		return value.MakeNull(), err
	}
	delta, err := ctx.integer(2)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.MutateTyped(key, value.KindMap, func(v *value.Value) (value.Value, error) {
		var cur int64
		if f, ok := v.Field(field); ok {
			n, err := value.ToInt64(f)
			if err != nil {
				return value.MakeNull(), ErrHashNotInteger
			}
			cur = n
		}

		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			return value.MakeNull(), ErrOverflow
		}

		next := cur + delta
		v.SetField(field, value.MakeBytes(strconv.AppendInt(nil, next, 10)))
		return value.MakeInteger(next), nil
	})
}

func hdel(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	fields, err := ctx.strs(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.MutateTyped(key, value.KindMap, func(v *value.Value) (value.Value, error) {
		var removed int64
		for _, f := range fields {
			if v.DeleteField(f) {
				removed++
			}
		}
		return value.MakeInteger(removed), nil
	})
}

func hexists(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	field, err := ctx.str(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		_, ok := v.Field(field)
		return boolInt(ok), nil
	})
}

func hlen(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		return value.MakeInteger(int64(v.Len())), nil
	})
}

func sortedFields(v value.Value) []string {
	names := make([]string, 0, v.Len())
	for name := range v.Fields() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hkeys lists field names in sorted order
func hkeys(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		names := sortedFields(v)
		out := make([]value.Value, len(names))
		for i, name := range names {
			out[i] = value.MakeString(name)
		}
		return value.MakeList(out...), nil
	})
}

// hvals lists values in the order hkeys lists their fields
func hvals(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindMap, func(v value.Value) (value.Value, error) {
		fields := v.Fields()
		names := sortedFields(v)
		out := make([]value.Value, len(names))
		for i, name := range names {
			out[i] = fields[name].Clone()
		}
		return value.MakeList(out...), nil
	})
}
