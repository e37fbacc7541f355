package command

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eternalApril/moondb/internal/value"
)

const (
	// maxExpireSeconds keeps now+ttl inside the range of time.Duration
	maxExpireSeconds = math.MaxInt64 / int64(time.Second) / 2

	// deadlines are kept in unix nanoseconds, later timestamps cannot be stored
	maxUnixSeconds = math.MaxInt64 / int64(time.Second)
	maxUnixMillis  = math.MaxInt64 / int64(time.Millisecond)
)

// str returns argument i as text
func (ctx *context) str(i int) (string, error) {
	return value.ArgString(ctx.args[i])
}

// strs returns arguments from i to the end as text
func (ctx *context) strs(from int) ([]string, error) {
	out := make([]string, 0, len(ctx.args)-from)
	for _, arg := range ctx.args[from:] {
		s, err := value.ArgString(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// upper returns argument i as upper-cased text, used for option names
func (ctx *context) upper(i int) (string, error) {
	s, err := ctx.str(i)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// payload returns argument i as a Bytes value owned by the storage
func (ctx *context) payload(i int) (value.Value, error) {
	b, err := value.ArgBytes(ctx.args[i])
	if err != nil {
		return value.MakeNull(), err
	}
	return value.MakeBytes(bytes.Clone(b)), nil
}

// payloads converts arguments from i to the end with payload
func (ctx *context) payloads(from int) ([]value.Value, error) {
	out := make([]value.Value, 0, len(ctx.args)-from)
	for i := from; i < len(ctx.args); i++ {
		v, err := ctx.payload(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// integer returns argument i as an integer
func (ctx *context) integer(i int) (int64, error) {
	n, err := value.ToInt64(ctx.args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotInteger, err)
	}
	return n, nil
}

// deadline converts a relative ttl in unit to an absolute instant
func (ctx *context) deadline(n int64, unit time.Duration) (time.Time, error) {
	seconds := n
	if unit == time.Millisecond {
		seconds = n / 1000
	}
	if seconds > maxExpireSeconds || seconds < -maxExpireSeconds {
		return time.Time{}, invalidExpire(ctx.name)
	}
	return ctx.now.Add(time.Duration(n) * unit), nil
}

// instant converts a unix timestamp in unit to an absolute instant
func (ctx *context) instant(n int64, unit time.Duration) (time.Time, error) {
	if n < 0 {
		return time.Time{}, invalidExpire(ctx.name)
	}
	if unit == time.Millisecond {
		if n > maxUnixMillis {
			return time.Time{}, invalidExpire(ctx.name)
		}
		return time.UnixMilli(n), nil
	}
	if n > maxUnixSeconds {
		return time.Time{}, invalidExpire(ctx.name)
	}
	return time.Unix(n, 0), nil
}

// okValue is the reply of commands that only acknowledge
func okValue() value.Value {
	return value.MakeString("OK")
}

func boolInt(b bool) value.Value {
	if b {
		return value.MakeInteger(1)
	}
	return value.MakeInteger(0)
}
