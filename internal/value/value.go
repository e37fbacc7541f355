package value

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the tag of a Value
type Kind byte

const (
	KindNull Kind = iota
	KindBytes
	KindInteger
	KindBoolean
	KindList
	KindMap
	KindSet
)

// String returns the tag name used in error messages
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBytes:
		return "bytes"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// TypeName returns the name reported by the TYPE command
func (k Kind) TypeName() string {
	switch k {
	case KindBytes, KindInteger, KindBoolean:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "hash"
	case KindSet:
		return "set"
	default:
		return "none"
	}
}

// IsScalar reports whether the tag holds a single (non-collection) value
func (k Kind) IsScalar() bool {
	return k == KindBytes || k == KindInteger || k == KindBoolean
}

// IsCollection reports whether the tag is a list, map or set
func (k Kind) IsCollection() bool {
	return k == KindList || k == KindMap || k == KindSet
}

// Value is a tagged union of everything a key can hold.
// Only the field matching kind is meaningful.
type Value struct {
	kind    Kind
	bytes   []byte
	integer int64
	boolean bool
	list    []Value
	hash    map[string]Value
	set     map[string]struct{}
}

// MakeNull returns the absent value
func MakeNull() Value {
	return Value{kind: KindNull}
}

// MakeBytes wraps b without copying it
func MakeBytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBytes, bytes: b}
}

func MakeString(s string) Value {
	return Value{kind: KindBytes, bytes: []byte(s)}
}

func MakeInteger(n int64) Value {
	return Value{kind: KindInteger, integer: n}
}

func MakeBoolean(b bool) Value {
	return Value{kind: KindBoolean, boolean: b}
}

// MakeList builds a list from items in order
func MakeList(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// MakeMap builds a map value. A nil map becomes an empty one
func MakeMap(fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{kind: KindMap, hash: fields}
}

// MakeSet builds a set from members, dropping duplicates
func MakeSet(members ...string) Value {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return Value{kind: KindSet, set: set}
}

// MakeEmpty returns the empty form of kind, used when a key is created by a mutation
func MakeEmpty(kind Kind) Value {
	switch kind {
	case KindBytes:
		return MakeBytes(nil)
	case KindInteger:
		return MakeInteger(0)
	case KindBoolean:
		return MakeBoolean(false)
	case KindList:
		return MakeList()
	case KindMap:
		return MakeMap(nil)
	case KindSet:
		return MakeSet()
	default:
		return MakeNull()
	}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Bytes returns the raw payload of a Bytes value, nil otherwise
func (v Value) Bytes() []byte {
	if v.kind != KindBytes {
		return nil
	}
	return v.bytes
}

// Integer returns the payload of an Integer value, 0 otherwise
func (v Value) Integer() int64 {
	if v.kind != KindInteger {
		return 0
	}
	return v.integer
}

// Boolean returns the payload of a Boolean value, false otherwise
func (v Value) Boolean() bool {
	if v.kind != KindBoolean {
		return false
	}
	return v.boolean
}

// List returns the live items of a List value
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Fields returns the live fields of a Map value
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.hash
}

// Members returns the members of a Set value in sorted order
func (v Value) Members() []string {
	if v.kind != KindSet {
		return nil
	}
	members := make([]string, 0, len(v.set))
	for m := range v.set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

// Len is the byte length for Bytes and the element count for collections
func (v Value) Len() int {
	switch v.kind {
	case KindBytes:
		return len(v.bytes)
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.hash)
	case KindSet:
		return len(v.set)
	default:
		return 0
	}
}

// elementOverhead is the assumed bookkeeping cost of one collection element
const elementOverhead = 16

// EstimatedSize is a rough footprint in bytes: payload plus a fixed cost per element
func (v Value) EstimatedSize() int64 {
	var n int64
	switch v.kind {
	case KindBytes:
		n = int64(len(v.bytes))
	case KindInteger, KindBoolean:
		n = 8
	case KindList:
		for _, item := range v.list {
			n += item.EstimatedSize() + elementOverhead
		}
	case KindMap:
		for name, field := range v.hash {
			n += int64(len(name)) + field.EstimatedSize() + elementOverhead
		}
	case KindSet:
		for m := range v.set {
			n += int64(len(m)) + elementOverhead
		}
	}
	return n
}

// SetBytes replaces the payload of a Bytes value
func (v *Value) SetBytes(b []byte) {
	v.kind = KindBytes
	v.bytes = b
}

// PushBack appends items to the tail of a list
func (v *Value) PushBack(items ...Value) {
	if v.kind != KindList {
		return
	}
	v.list = append(v.list, items...)
}

// PushFront inserts items at the head one by one, so the last item ends up first
func (v *Value) PushFront(items ...Value) {
	if v.kind != KindList {
		return
	}
	list := make([]Value, 0, len(v.list)+len(items))
	for i := len(items) - 1; i >= 0; i-- {
		list = append(list, items[i])
	}
	v.list = append(list, v.list...)
}

// PopFront removes and returns the head of a list
func (v *Value) PopFront() (Value, bool) {
	if v.kind != KindList || len(v.list) == 0 {
		return MakeNull(), false
	}
	head := v.list[0]
	v.list[0] = Value{}
	v.list = v.list[1:]
	return head, true
}

// PopBack removes and returns the tail of a list
func (v *Value) PopBack() (Value, bool) {
	if v.kind != KindList || len(v.list) == 0 {
		return MakeNull(), false
	}
	last := len(v.list) - 1
	tail := v.list[last]
	v.list[last] = Value{}
	v.list = v.list[:last]
	return tail, true
}

// Field returns a map field
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return MakeNull(), false
	}
	f, ok := v.hash[name]
	return f, ok
}

// SetField sets a map field. Returns true if the field is new
func (v *Value) SetField(name string, field Value) bool {
	if v.kind != KindMap {
		return false
	}
	_, exists := v.hash[name]
	v.hash[name] = field
	return !exists
}

// DeleteField removes a map field. Returns true if it was present
func (v *Value) DeleteField(name string) bool {
	if v.kind != KindMap {
		return false
	}
	if _, ok := v.hash[name]; !ok {
		return false
	}
	delete(v.hash, name)
	return true
}

// AddMember adds a member to a set. Returns true if it was not there yet
func (v *Value) AddMember(member string) bool {
	if v.kind != KindSet {
		return false
	}
	if _, ok := v.set[member]; ok {
		return false
	}
	v.set[member] = struct{}{}
	return true
}

// RemoveMember removes a member from a set. Returns true if it was present
func (v *Value) RemoveMember(member string) bool {
	if v.kind != KindSet {
		return false
	}
	if _, ok := v.set[member]; !ok {
		return false
	}
	delete(v.set, member)
	return true
}

func (v Value) HasMember(member string) bool {
	if v.kind != KindSet {
		return false
	}
	_, ok := v.set[member]
	return ok
}

// Clone returns a deep copy sharing no memory with v
func (v Value) Clone() Value {
	switch v.kind {
	case KindBytes:
		return Value{kind: KindBytes, bytes: bytes.Clone(v.bytes)}
	case KindList:
		list := make([]Value, len(v.list))
		for i, item := range v.list {
			list[i] = item.Clone()
		}
		return Value{kind: KindList, list: list}
	case KindMap:
		hash := make(map[string]Value, len(v.hash))
		for name, field := range v.hash {
			hash[name] = field.Clone()
		}
		return Value{kind: KindMap, hash: hash}
	case KindSet:
		set := make(map[string]struct{}, len(v.set))
		for m := range v.set {
			set[m] = struct{}{}
		}
		return Value{kind: KindSet, set: set}
	default:
		return v
	}
}

// Equal reports deep equality. List order matters, map and set order does not
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBytes:
		return bytes.Equal(v.bytes, other.bytes)
	case KindInteger:
		return v.integer == other.integer
	case KindBoolean:
		return v.boolean == other.boolean
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.hash) != len(other.hash) {
			return false
		}
		for name, field := range v.hash {
			o, ok := other.hash[name]
			if !ok || !field.Equal(o) {
				return false
			}
		}
		return true
	case KindSet:
		if len(v.set) != len(other.set) {
			return false
		}
		for m := range v.set {
			if _, ok := other.set[m]; !ok {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for debugging and logs
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "(nil)"
	case KindBytes:
		return strconv.Quote(string(v.bytes))
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindMap:
		names := make([]string, 0, len(v.hash))
		for name := range v.hash {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%q:%s", name, v.hash[name].String())
		}
		return "{" + strings.Join(parts, " ") + "}"
	case KindSet:
		members := v.Members()
		for i, m := range members {
			members[i] = strconv.Quote(m)
		}
		return "#{" + strings.Join(members, " ") + "}"
	}
	return v.kind.String()
}
