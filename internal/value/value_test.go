package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeEmpty(t *testing.T) {
	for _, kind := range []Kind{KindBytes, KindInteger, KindBoolean, KindList, KindMap, KindSet, KindNull} {
		t.Run(kind.String(), func(t *testing.T) {
			v := MakeEmpty(kind)
			assert.Equal(t, kind, v.Kind())
			assert.Equal(t, 0, v.Len())
		})
	}
}

func TestKind_TypeName(t *testing.T) {
	assert.Equal(t, "string", KindBytes.TypeName())
	assert.Equal(t, "string", KindInteger.TypeName())
	assert.Equal(t, "hash", KindMap.TypeName())
	assert.Equal(t, "list", KindList.TypeName())
	assert.Equal(t, "set", KindSet.TypeName())
	assert.Equal(t, "none", KindNull.TypeName())
}

func TestList_Push(t *testing.T) {
	v := MakeList()
	v.PushBack(MakeString("b"), MakeString("c"))
	v.PushFront(MakeString("a1"), MakeString("a2"))

	got, err := ToStrings(v)
	require.NoError(t, err)
	// LPUSH a1 a2 leaves a2 at the head
	assert.Equal(t, []string{"a2", "a1", "b", "c"}, got)

	head, ok := v.PopFront()
	require.True(t, ok)
	assert.True(t, head.Equal(MakeString("a2")))

	tail, ok := v.PopBack()
	require.True(t, ok)
	assert.True(t, tail.Equal(MakeString("c")))
	assert.Equal(t, 2, v.Len())

	empty := MakeList()
	_, ok = empty.PopFront()
	assert.False(t, ok)
}

func TestMap_Fields(t *testing.T) {
	v := MakeMap(nil)
	assert.True(t, v.SetField("name", MakeString("Alice")))
	assert.False(t, v.SetField("name", MakeString("Bob")))

	f, ok := v.Field("name")
	require.True(t, ok)
	assert.True(t, f.Equal(MakeString("Bob")))
	assert.Equal(t, 1, v.Len())

	assert.True(t, v.DeleteField("name"))
	assert.False(t, v.DeleteField("name"))
	assert.Equal(t, 0, v.Len())
}

func TestSet_Members(t *testing.T) {
	v := MakeSet()
	assert.True(t, v.AddMember("x"))
	assert.False(t, v.AddMember("x"))
	assert.True(t, v.AddMember("a"))
	assert.True(t, v.HasMember("a"))
	assert.Equal(t, []string{"a", "x"}, v.Members())

	assert.True(t, v.RemoveMember("a"))
	assert.False(t, v.RemoveMember("a"))
	assert.False(t, v.HasMember("a"))
}

func TestWrongKindHelpersAreNoop(t *testing.T) {
	v := MakeString("scalar")
	v.PushBack(MakeString("x"))
	assert.False(t, v.SetField("f", MakeString("x")))
	assert.False(t, v.AddMember("m"))
	assert.True(t, v.Equal(MakeString("scalar")))
}

func TestClone_Independent(t *testing.T) {
	orig := MakeMap(map[string]Value{
		"list": MakeList(MakeString("a")),
		"raw":  MakeBytes([]byte("abc")),
	})

	clone := orig.Clone()
	require.True(t, orig.Equal(clone))

	list, _ := clone.Field("list")
	list.PushBack(MakeString("b"))
	clone.SetField("list", list)
	clone.SetField("extra", MakeInteger(1))
	raw, _ := clone.Field("raw")
	raw.Bytes()[0] = 'z'

	origList, _ := orig.Field("list")
	assert.Equal(t, 1, origList.Len())
	assert.Equal(t, 2, orig.Len())
	origRaw, _ := orig.Field("raw")
	assert.Equal(t, "abc", string(origRaw.Bytes()))
}

func TestEqual(t *testing.T) {
	assert.True(t, MakeNull().Equal(MakeNull()))
	assert.False(t, MakeString("1").Equal(MakeInteger(1)))
	assert.False(t, MakeList(MakeString("a"), MakeString("b")).Equal(MakeList(MakeString("b"), MakeString("a"))))
	assert.True(t, MakeSet("a", "b").Equal(MakeSet("b", "a")))
	assert.False(t, MakeSet("a").Equal(MakeSet("b")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "(nil)", MakeNull().String())
	assert.Equal(t, `"hi"`, MakeString("hi").String())
	assert.Equal(t, `["a" 1]`, MakeList(MakeString("a"), MakeInteger(1)).String())
	assert.Equal(t, `{"a":"1" "b":true}`, MakeMap(map[string]Value{"b": MakeBoolean(true), "a": MakeString("1")}).String())
	assert.Equal(t, `#{"x" "y"}`, MakeSet("y", "x").String())
}

func TestEstimatedSize(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int64
	}{
		{"null", MakeNull(), 0},
		{"bytes", MakeString("hello"), 5},
		{"integer", MakeInteger(42), 8},
		{"list", MakeList(MakeString("ab"), MakeString("c")), 3 + 2*elementOverhead},
		{"map", MakeMap(map[string]Value{"f": MakeString("vv")}), 3 + elementOverhead},
		{"set", MakeSet("x", "yz"), 3 + 2*elementOverhead},
		{"empty set", MakeSet(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.EstimatedSize())
		})
	}
}
