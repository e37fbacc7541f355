package value

import (
	"fmt"
	"math"
	"strconv"
)

// FromArg converts one Go argument into a Value.
// Sequences are rejected here, pass them through Args to have them flattened.
func FromArg(arg any) (Value, error) {
	switch a := arg.(type) {
	case nil:
		return MakeNull(), nil
	case Value:
		return a, nil
	case string:
		return MakeString(a), nil
	case []byte:
		return MakeBytes(a), nil
	case int:
		return MakeInteger(int64(a)), nil
	case int8:
		return MakeInteger(int64(a)), nil
	case int16:
		return MakeInteger(int64(a)), nil
	case int32:
		return MakeInteger(int64(a)), nil
	case int64:
		return MakeInteger(a), nil
	case uint:
		return fromUint(uint64(a))
	case uint8:
		return MakeInteger(int64(a)), nil
	case uint16:
		return MakeInteger(int64(a)), nil
	case uint32:
		return MakeInteger(int64(a)), nil
	case uint64:
		return fromUint(a)
	case float32:
		return MakeString(strconv.FormatFloat(float64(a), 'f', -1, 32)), nil
	case float64:
		return MakeString(strconv.FormatFloat(a, 'f', -1, 64)), nil
	case bool:
		return MakeBoolean(a), nil
	case *string:
		if a == nil {
			return MakeNull(), nil
		}
		return MakeString(*a), nil
	case *int64:
		if a == nil {
			return MakeNull(), nil
		}
		return MakeInteger(*a), nil
	case *bool:
		if a == nil {
			return MakeNull(), nil
		}
		return MakeBoolean(*a), nil
	case []string, [][]byte, []int, []int64, []any, []Value:
		return MakeNull(), &ParseError{From: fmt.Sprintf("%T", arg), Target: "single argument"}
	default:
		return MakeNull(), &ParseError{From: fmt.Sprintf("%T", arg), Target: "argument"}
	}
}

func fromUint(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return MakeNull(), &ParseError{From: "uint64", Target: "integer", Input: strconv.FormatUint(n, 10)}
	}
	return MakeInteger(int64(n)), nil
}

// Args converts a call's arguments, flattening sequences into repeated arguments
func Args(args ...any) ([]Value, error) {
	out := make([]Value, 0, len(args))
	for _, arg := range args {
		var err error
		switch a := arg.(type) {
		case []string:
			for _, s := range a {
				out = append(out, MakeString(s))
			}
		case [][]byte:
			for _, b := range a {
				out = append(out, MakeBytes(b))
			}
		case []int:
			for _, n := range a {
				out = append(out, MakeInteger(int64(n)))
			}
		case []int64:
			for _, n := range a {
				out = append(out, MakeInteger(n))
			}
		case []Value:
			out = append(out, a...)
		case []any:
			var nested []Value
			nested, err = Args(a...)
			out = append(out, nested...)
		default:
			var v Value
			v, err = FromArg(arg)
			out = append(out, v)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ArgBytes returns the byte form of a command argument.
// Booleans travel as "1" and "0".
func ArgBytes(v Value) ([]byte, error) {
	switch v.kind {
	case KindBytes:
		return v.bytes, nil
	case KindInteger:
		return strconv.AppendInt(nil, v.integer, 10), nil
	case KindBoolean:
		if v.boolean {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	case KindNull:
		return []byte{}, nil
	default:
		return nil, parseError(v.kind, "argument bytes", nil)
	}
}

// ArgString is ArgBytes returning a string
func ArgString(v Value) (string, error) {
	b, err := ArgBytes(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
