package command

import (
	"math/rand/v2"

	"github.com/eternalApril/moondb/internal/value"
)

func sadd(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	members, err := ctx.strs(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.MutateTyped(key, value.KindSet, func(v *value.Value) (value.Value, error) {
		var added int64
		for _, m := range members {
			if v.AddMember(m) {
				added++
			}
		}
		return value.MakeInteger(added), nil
	})
}

func srem(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	members, err := ctx.strs(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.MutateTyped(key, value.KindSet, func(v *value.Value) (value.Value, error) {
		var removed int64
		for _, m := range members {
			if v.RemoveMember(m) {
				removed++
			}
		}
		return value.MakeInteger(removed), nil
	})
}

func smembers(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindSet, func(v value.Value) (value.Value, error) {
		return v.Clone(), nil
	})
}

func sismember(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}
	member, err := ctx.str(1)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindSet, func(v value.Value) (value.Value, error) {
		return boolInt(v.HasMember(member)), nil
	})
}

func scard(ctx *context) (value.Value, error) {
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	return ctx.storage.ViewTyped(key, value.KindSet, func(v value.Value) (value.Value, error) {
		return value.MakeInteger(int64(v.Len())), nil
	})
}

// spop removes random members. Without a count it answers one member or Null,
// with a count a list of at most count members
func spop(ctx *context) (value.Value, error) {
	if len(ctx.args) > 2 {
		return value.MakeNull(), syntaxError("too many arguments for 'spop'")
	}
	key, err := ctx.str(0)
	if err != nil {
		return value.MakeNull(), err
	}

	count := int64(1)
	withCount := len(ctx.args) == 2
	if withCount {
		count, err = ctx.integer(1)
		if err != nil {
			return value.MakeNull(), err
		}
		if count < 0 {
			return value.MakeNull(), ErrNotPositive
		}
	}

	return ctx.storage.MutateTyped(key, value.KindSet, func(v *value.Value) (value.Value, error) {
		members := v.Members()
		rand.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		members = members[:min(count, int64(len(members)))]

		for _, m := range members {
			v.RemoveMember(m)
		}

		if !withCount {
			if len(members) == 0 {
				return value.MakeNull(), nil
			}
			return value.MakeString(members[0]), nil
		}
		out := make([]value.Value, len(members))
		for i, m := range members {
			out[i] = value.MakeString(m)
		}
		return value.MakeList(out...), nil
	})
}
