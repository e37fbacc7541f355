package command

import (
	"github.com/eternalApril/moondb/internal/value"
)

// push builds LPUSH and RPUSH. Both answer the length of the list after the push
func push(front bool) commandFunc {
	return func(ctx *context) (value.Value, error) {
		key, err := ctx.str(0)
		if err != nil {
			return value.MakeNull(), err
		}
		items, err := ctx.payloads(1)
		if err != nil {
			return value.MakeNull(), err
		}

		return ctx.storage.MutateTyped(key, value.KindList, func(v *value.Value) (value.Value, error) {
			if front {
				v.PushFront(items...)
			} else {
				v.PushBack(items...)
			}
			return value.MakeInteger(int64(v.Len())), nil
		})
	}
}

// pop builds LPOP and RPOP. An empty or missing list answers Null
func pop(front bool) commandFunc {
	return func(ctx *context) (value.Value, error) {
		key, err := ctx.str(0)
		if err != nil {
			return value.MakeNull(), err
		}

		return ctx.storage.MutateTyped(key, value.KindList, func(v *value.Value) (value.Value, error) {
			var item value.Value
			if front {
				item, _ = v.PopFront()
			} else {
				item, _ = v.PopBack()
			}
			return item, nil
		})
	}
}

func llen(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindList, func(v value.Value) (value.Value, error) {
		return value.MakeInteger(int64(v.Len())), nil
	})
}

// lindex answers the element at index, Null when it is out of range
func lindex(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	index, err := ctx.integer(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindList, func(v value.Value) (value.Value, error) {
		items := v.List()
		if index < 0 {
			index += int64(len(items))
		}
		if index < 0 || index >= int64(len(items)) {
			return value.MakeNull(), nil
		}
		return items[index].Clone(), nil
	})
}

// lrange answers the inclusive range [start, stop]. Negative indexes count from the tail
func lrange(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	start, err := ctx.integer(1)
	if err != nil {
		return value.MakeNull(), err
	}
	stop, err := ctx.integer(2)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindList, func(v value.Value) (value.Value, error) {
		items := v.List()
		lo, hi := rangeBounds(start, stop, int64(len(items)))
		if lo > hi {
			return value.MakeList(), nil
		}

		out := make([]value.Value, 0, hi-lo+1)
		for _, item := range items[lo : hi+1] {
			out = append(out, item.Clone())
		}
		return value.MakeList(out...), nil
	})
}

// rangeBounds clamps an inclusive index range to a sequence of n elements.
// lo > hi means the range is empty
func rangeBounds(start, stop, n int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}
