package value

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ToBytes converts v to a byte sequence. Null becomes empty
func ToBytes(v Value) ([]byte, error) {
	switch v.kind {
	case KindBytes:
		return v.bytes, nil
	case KindInteger:
		return strconv.AppendInt(nil, v.integer, 10), nil
	case KindNull:
		return []byte{}, nil
	default:
		return nil, parseError(v.kind, "bytes", nil)
	}
}

// ToString converts v to text. Bytes must be valid UTF-8
func ToString(v Value) (string, error) {
	b, err := ToBytes(v)
	if err != nil {
		return "", &ParseError{From: v.kind.String(), Target: "text"}
	}
	if !utf8.Valid(b) {
		return "", parseError(v.kind, "text", nil)
	}
	return string(b), nil
}

// ToInt64 converts v to an integer. Null is an error since there is no number to parse
func ToInt64(v Value) (int64, error) {
	switch v.kind {
	case KindBytes:
		n, err := strconv.ParseInt(string(v.bytes), 10, 64)
		if err != nil {
			return 0, parseError(v.kind, "integer", v.bytes)
		}
		return n, nil
	case KindInteger:
		return v.integer, nil
	case KindBoolean:
		if v.boolean {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, parseError(v.kind, "integer", nil)
	}
}

func ToInt(v Value) (int, error) {
	n, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt || n < math.MinInt {
		return 0, &ParseError{From: v.kind.String(), Target: "int", Input: strconv.FormatInt(n, 10)}
	}
	return int(n), nil
}

func ToUint64(v Value) (uint64, error) {
	n, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &ParseError{From: v.kind.String(), Target: "uint64", Input: strconv.FormatInt(n, 10)}
	}
	return uint64(n), nil
}

func ToFloat64(v Value) (float64, error) {
	switch v.kind {
	case KindBytes:
		f, err := strconv.ParseFloat(string(v.bytes), 64)
		if err != nil {
			return 0, parseError(v.kind, "float", v.bytes)
		}
		return f, nil
	case KindInteger:
		return float64(v.integer), nil
	default:
		return 0, parseError(v.kind, "float", nil)
	}
}

// ToBool converts v to a boolean. Unrecognized bytes are false, not an error
func ToBool(v Value) (bool, error) {
	switch v.kind {
	case KindBytes:
		s := string(v.bytes)
		return s == "1" || strings.EqualFold(s, "true"), nil
	case KindInteger:
		return v.integer != 0, nil
	case KindBoolean:
		return v.boolean, nil
	case KindNull:
		return false, nil
	default:
		return false, parseError(v.kind, "boolean", nil)
	}
}

// ToList returns the items of a List. Null becomes an empty list
func ToList(v Value) ([]Value, error) {
	switch v.kind {
	case KindList:
		return v.list, nil
	case KindNull:
		return []Value{}, nil
	default:
		return nil, parseError(v.kind, "list", nil)
	}
}

// ToMap returns the fields of a Map. Null becomes an empty map
func ToMap(v Value) (map[string]Value, error) {
	switch v.kind {
	case KindMap:
		return v.hash, nil
	case KindNull:
		return map[string]Value{}, nil
	default:
		return nil, parseError(v.kind, "map", nil)
	}
}

// ToSet returns the sorted members of a Set. Null becomes an empty set
func ToSet(v Value) ([]string, error) {
	switch v.kind {
	case KindSet:
		return v.Members(), nil
	case KindNull:
		return []string{}, nil
	default:
		return nil, parseError(v.kind, "set", nil)
	}
}

// ToStrings flattens a List or Set of scalars into text
func ToStrings(v Value) ([]string, error) {
	switch v.kind {
	case KindSet:
		return v.Members(), nil
	case KindNull:
		return []string{}, nil
	case KindList:
		out := make([]string, len(v.list))
		for i, item := range v.list {
			s, err := ToString(item)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, parseError(v.kind, "string list", nil)
	}
}

// ToStringMap converts a Map of scalars into a map of text
func ToStringMap(v Value) (map[string]string, error) {
	fields, err := ToMap(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for name, field := range fields {
		s, err := ToString(field)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}
